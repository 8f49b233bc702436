package main

import (
	"fmt"
	logger "log"
	"os"

	"github.com/ardanlabs/conf"
	"github.com/nats-io/nats.go"

	"github.com/OpenTrailTools/geolifestore/app/geolife-loader/geolifemanager"
	"github.com/OpenTrailTools/geolifestore/business/data/geolife"
	"github.com/OpenTrailTools/geolifestore/foundation/database"
)

var build = "develop"

func main() {
	log := logger.New(os.Stdout, "GEOLIFE_LOADER : ", logger.LstdFlags|logger.Lmicroseconds|logger.Lshortfile)
	if err := run(log); err != nil {
		log.Printf("main: error: %v", err)
		os.Exit(1)
	}
}

func run(log *logger.Logger) error {
	var cfg struct {
		conf.Version
		Args conf.Args
		DB   struct {
			Driver     string `conf:"default:pgx"`
			User       string `conf:"default:postgres"`
			Password   string `conf:"default:postgres,noprint"`
			Host       string `conf:"default:0.0.0.0"`
			Name       string `conf:"default:postgres"`
			DisableTLS bool   `conf:"default:true"`
		}
		Dataset struct {
			Root             string `conf:"default:dataset/Data"`
			LabeledIdsFile   string `conf:"default:dataset/labeled_ids.txt"`
			BatchSize        int    `conf:"default:10000"`
			MaxPointsPerFile int    `conf:"default:2500"`
		}
		NATS struct {
			Url string `conf:"default:"`
		}
	}
	cfg.Version.SVN = build
	cfg.Version.Desc = "Load Geolife trajectory dataset into database"
	if err := conf.Parse(os.Args[1:], "GEOLIFE_LOADER", &cfg); err != nil {
		switch err {
		case conf.ErrHelpWanted:
			usage, err := conf.Usage("GEOLIFE_LOADER", &cfg)
			if err != nil {
				return fmt.Errorf("generating config usage: %w", err)
			}
			fmt.Println(usage)
			return nil
		case conf.ErrVersionWanted:
			version, err := conf.VersionString("GEOLIFE_LOADER", &cfg)
			if err != nil {
				return fmt.Errorf("generating config version: %w", err)
			}
			fmt.Println(version)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Printf("main : Started : Application initializing : version %s", build)
	defer log.Println("main: Completed")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Printf("main: Config :\n%v\n", out)

	// =========================================================================
	// Start Database

	log.Println("main: Initializing database support")

	db, err := database.Open(database.Config{
		Driver:     cfg.DB.Driver,
		User:       cfg.DB.User,
		Password:   cfg.DB.Password,
		Host:       cfg.DB.Host,
		Name:       cfg.DB.Name,
		DisableTLS: cfg.DB.DisableTLS,
	})
	if err != nil {
		return fmt.Errorf("connecting to db: %w", err)
	}
	defer func() {
		log.Printf("main: Database Stopping : %s", cfg.DB.Host)
		err = db.Close()
		if err != nil {
			log.Printf("main: error closing database: %v", err)
		}
	}()

	switch cfg.Args.Num(0) {
	case "init":
		return geolife.CreateTables(db)

	case "users":
		_, err = geolifemanager.InsertUsers(log, db, cfg.Dataset.Root, cfg.Dataset.LabeledIdsFile)
		return err

	case "load":
		var progress *geolifemanager.ProgressPublisher
		if len(cfg.NATS.Url) > 0 {
			natsConnection, err := nats.Connect(cfg.NATS.Url)
			if err != nil {
				return fmt.Errorf("connecting to nats at %s: %w", cfg.NATS.Url, err)
			}
			defer natsConnection.Close()
			progress = geolifemanager.MakeProgressPublisher(log, natsConnection)
		}
		_, err = geolifemanager.LoadDataset(log, db, geolifemanager.Config{
			DatasetRoot:      cfg.Dataset.Root,
			LabeledIdsFile:   cfg.Dataset.LabeledIdsFile,
			BatchSize:        cfg.Dataset.BatchSize,
			MaxPointsPerFile: cfg.Dataset.MaxPointsPerFile,
		}, progress)
		return err

	case "summary":
		counts, err := geolife.GetCounts(db)
		if err != nil {
			return err
		}
		fmt.Printf("users: %d\nactivities: %d\ntrackpoints: %d\n",
			counts.Users, counts.Activities, counts.TrackPoints)
		return nil

	case "drop":
		return geolife.DropTables(db)

	default:
		fmt.Println("init: create the geolife tables")
		fmt.Println("users: insert one user per dataset directory")
		fmt.Println("load: load activities and trackpoints from the dataset tree")
		fmt.Println("summary: print record counts")
		fmt.Println("drop: drop the geolife tables")
		usage, err := conf.Usage("GEOLIFE_LOADER", &cfg)
		if err != nil {
			return fmt.Errorf("generating config usage: %w", err)
		}
		fmt.Println(usage)
	}
	return nil
}
