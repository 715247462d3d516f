package conf

/*
   This package wraps viper, a package designed to handle config files, for
   the TiC MRF app. Configuration is read once from an env-format file when
   the package is first loaded; anything not tracked in the file is resolved
   from the process environment.

   Assumptions:
   1. The configuration file is a env file
   2. The configuration file, once it is made available to the application,
   will stay immutable during the uptime of the application (exception is test)
*/

import (
	"os"
	"testing"

	"github.com/spf13/viper"
)

// An instance of the viper struct containing the conf information. Only made
// accessible through public functions GetEnv, SetEnv, etc.
var envVars viper.Viper

const (
	configgood    uint8 = 0
	configbad     uint8 = 1
	noconfigfound uint8 = 2
)

var state uint8 = configgood

/*
   setup is the private helper function that sets up viper. It is called by
   the init() function once during initialization of the package.
*/
func setup(dir string) *viper.Viper {

	var v = viper.New()
	v.SetConfigName("local")
	v.SetConfigType("env")
	v.AddConfigPath(dir)
	// Viper is lazy, do the read and parse of the config file
	var err = v.ReadInConfig()

	if err != nil {
		state = configbad
	}

	return v

}

func init() {

	// Possible config file locations: local dev checkout and deployed image.
	var locationSlice = [2]string{
		"shared_files",
		"/etc/tic-app",
	}

	if success, loc := findEnv(locationSlice[:]); success {
		envVars = *setup(loc)
	} else {
		state = noconfigfound
	}
}

/*
   findEnv determines where the configuration file lives. First it checks the
   local path, then the deployed path. If neither is found, the package
   defaults to just using environment variables.
*/
func findEnv(location []string) (bool, string) {

	if _, err := os.Stat(location[0] + "/local.env"); err == nil {
		return true, location[0]
	}

	// Base case: checked all locations and no configurations found
	if len(location) == 1 {
		return false, ""
	}

	return findEnv(location[1:])
}

// GetEnv is a public function that retrieves value stored in conf. If it does
// not exist, "" empty string is returned.
func GetEnv(key string) string {

	if state == configgood {

		var value = envVars.GetString(key)
		var b bool

		// Even if the config file loaded, if the key doesn't exist in conf,
		// try the environment. Copy it over to conf to prevent additional OS
		// calls; remember to delete both when UnsetEnv() is called.
		if value == "" {
			value, b = os.LookupEnv(key)

			if b {
				test := &testing.T{}
				var _ = SetEnv(test, key, value)
			}

		}

		return value
	}

	return os.Getenv(key)

}

// LookupEnv is a public function that augments os.LookupEnv to look in the
// viper struct first.
func LookupEnv(key string) (string, bool) {

	if state == configgood {
		if value := envVars.Get(key); value != nil && value != "" {
			return value.(string), true
		}

		if v, exist := os.LookupEnv(key); exist {
			test := &testing.T{}
			var _ = SetEnv(test, key, v)
			return v, exist
		}

		return "", false
	}

	return os.LookupEnv(key)

}

// SetEnv is a public function that adds key values into conf. This function
// should only be used either in this package itself or testing. Protect
// parameter is type *testing.T, and is there to ensure developers knowingly
// use it in the appropriate scope.
func SetEnv(protect *testing.T, key string, value string) error {

	var err error

	if state == configgood {
		envVars.Set(key, value)
	} else {
		err = os.Setenv(key, value)
	}

	return err

}

// UnsetEnv is a public function that "unsets" a variable. Like SetEnv, this
// should only be used either in this package itself or testing.
func UnsetEnv(protect *testing.T, key string) error {
	var err error

	if state == configgood {
		envVars.Set(key, "")
	}

	err = os.Unsetenv(key)

	return err

}
