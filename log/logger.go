package log

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/tichealth/tic-app/conf"
)

var (
	API     logrus.FieldLogger
	Request logrus.FieldLogger
	Upload  logrus.FieldLogger
	Storage logrus.FieldLogger
)

func init() {
	API = Logger(logrus.New(), conf.GetEnv("TIC_ERROR_LOG"),
		"api", conf.GetEnv("ENVIRONMENT"))
	Request = Logger(logrus.New(), conf.GetEnv("TIC_REQUEST_LOG"),
		"api", conf.GetEnv("ENVIRONMENT"))
	Upload = Logger(logrus.New(), conf.GetEnv("TIC_UPLOAD_LOG"),
		"api", conf.GetEnv("ENVIRONMENT"))
	Storage = Logger(logrus.New(), conf.GetEnv("TIC_STORAGE_LOG"),
		"api", conf.GetEnv("ENVIRONMENT"))
}

func Logger(logger *logrus.Logger, outputFile string,
	application, environment string) logrus.FieldLogger {

	if outputFile != "" {
		if file, err := os.OpenFile(filepath.Clean(outputFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640); err == nil {
			logger.SetOutput(file)
		} else {
			logger.Infof("Failed to open output file %s. Will use stderr. %s",
				outputFile, err.Error())
		}
	}

	return logger.WithFields(logrus.Fields{
		"application": application,
		"environment": environment})
}
