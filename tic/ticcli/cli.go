package ticcli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/tichealth/tic-app/tic/approval"
	"github.com/tichealth/tic-app/tic/auth"
	"github.com/tichealth/tic-app/tic/claims"
	"github.com/tichealth/tic-app/tic/constants"
	"github.com/tichealth/tic-app/tic/grouping"
	"github.com/tichealth/tic-app/tic/mrf"
	"github.com/tichealth/tic-app/tic/servicemux"
	"github.com/tichealth/tic-app/tic/storage"
	"github.com/tichealth/tic-app/tic/utils"
	"github.com/tichealth/tic-app/tic/web"
)

// App Name and usage.  Edit them here to prevent breaking tests
const Name = "tic"
const Usage = "Transparency in Coverage MRF generator CLI"

func GetApp() *cli.App {
	return setUpApp()
}

func setUpApp() *cli.App {
	app := cli.NewApp()
	app.Name = Name
	app.Usage = Usage
	app.Version = constants.Version
	var filePath, methodName, outputDir, customerID string
	app.Commands = []cli.Command{
		{
			Name:  "start-api",
			Usage: "Start the API",
			Action: func(c *cli.Context) error {
				fmt.Fprintf(app.Writer, "%s\n", "Starting tic...")

				registry := auth.NewRegistry()
				files := storage.NewFileStore(utils.FromEnv("TIC_MRF_DIR", "/var/tic/mrf"))

				// Accepts and redirects HTTP requests to HTTPS
				srv := &http.Server{
					Handler:      web.NewHTTPRouter(),
					Addr:         ":3001",
					ReadTimeout:  5 * time.Second,
					WriteTimeout: 5 * time.Second,
				}
				go func() { log.Fatal(srv.ListenAndServe()) }()

				api := &http.Server{
					Handler:      web.NewAPIRouter(registry, files),
					ReadTimeout:  time.Duration(utils.GetEnvInt("API_READ_TIMEOUT", 10)) * time.Second,
					WriteTimeout: time.Duration(utils.GetEnvInt("API_WRITE_TIMEOUT", 20)) * time.Second,
					IdleTimeout:  time.Duration(utils.GetEnvInt("API_IDLE_TIMEOUT", 120)) * time.Second,
				}

				fileserver := &http.Server{
					Handler:      web.NewDataRouter(registry, files),
					ReadTimeout:  time.Duration(utils.GetEnvInt("FILESERVER_READ_TIMEOUT", 10)) * time.Second,
					WriteTimeout: time.Duration(utils.GetEnvInt("FILESERVER_WRITE_TIMEOUT", 360)) * time.Second,
					IdleTimeout:  time.Duration(utils.GetEnvInt("FILESERVER_IDLE_TIMEOUT", 120)) * time.Second,
				}

				smux := servicemux.New(utils.FromEnv("TIC_API_ADDR", ":3000"))
				smux.AddServer(fileserver, "/data")
				smux.AddServer(api, "")
				smux.Serve()

				return nil
			},
		},
		{
			Name:  "generate",
			Usage: "Generate MRF documents from a claim CSV without the API",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:        "file",
					Usage:       "Path of the claim CSV",
					Destination: &filePath,
				},
				cli.StringFlag{
					Name:        "method",
					Usage:       "Grouping methodology for the review summary",
					Value:       string(grouping.DefaultMethod),
					Destination: &methodName,
				},
				cli.StringFlag{
					Name:        "dir",
					Usage:       "Output directory for generated documents",
					Destination: &outputDir,
				},
			},
			Action: func(c *cli.Context) error {
				fileNames, err := generateMRF(filePath, methodName, outputDir)
				if err != nil {
					return err
				}
				for _, name := range fileNames {
					fmt.Fprintf(app.Writer, "%s\n", name)
				}
				return nil
			},
		},
		{
			Name:  "list-files",
			Usage: "List generated MRF documents from the manifest",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:        "customer",
					Usage:       "Limit the listing to one customer id",
					Destination: &customerID,
				},
				cli.StringFlag{
					Name:        "dir",
					Usage:       "MRF storage directory",
					Destination: &outputDir,
				},
			},
			Action: func(c *cli.Context) error {
				files := storage.NewFileStore(storageDir(outputDir))
				records, err := files.List(customerID)
				if err != nil {
					return err
				}
				out, err := json.MarshalIndent(records, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintf(app.Writer, "%s\n", out)
				return nil
			},
		},
	}
	return app
}

func storageDir(dir string) string {
	if dir != "" {
		return dir
	}
	return utils.FromEnv("TIC_MRF_DIR", "/var/tic/mrf")
}

// generateMRF runs the full pipeline in one shot: ingest, group under the
// chosen methodology, approve every eligible group, and persist the
// documents. It fails before any write when nothing is publishable.
func generateMRF(filePath, methodName, outputDir string) ([]string, error) {
	if filePath == "" {
		return nil, errors.New("file is required")
	}

	method, err := grouping.ParseMethod(methodName)
	if err != nil {
		return nil, err
	}

	claimSet, err := claims.ReadClaimsFile(filePath)
	if err != nil {
		return nil, err
	}
	if len(claimSet) == 0 {
		return nil, errors.New(constants.ErrNoClaims)
	}

	store := approval.NewStore()
	store.SetClaims(claimSet)
	if err := store.SetMethod(method); err != nil {
		return nil, err
	}
	if err := store.ApproveAllEligibleGroups(); err != nil {
		return nil, err
	}

	approved, err := store.ApprovedEligibleClaims()
	if err != nil {
		return nil, err
	}
	if len(approved) == 0 {
		return nil, errors.New(constants.ErrNoEligibleClaims)
	}

	documents := mrf.Generate(approved, time.Now().UTC())
	if len(documents) == 0 {
		return nil, errors.New(constants.ErrNoDocuments)
	}

	files := storage.NewFileStore(storageDir(outputDir))
	fileNames := make([]string, 0, len(documents))
	for _, doc := range documents {
		record, err := files.Save(doc)
		if err != nil {
			return nil, errors.Wrap(err, "failed to persist MRF document")
		}
		fileNames = append(fileNames, record.FileName)
	}
	return fileNames, nil
}
