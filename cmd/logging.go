package cmd

import (
	"os"
	"strings"

	"github.com/vibast-solutions/ms-go-shop/config"

	"github.com/sirupsen/logrus"
)

func configureLogging(cfg *config.Config) error {
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stdout)

	switch strings.ToLower(cfg.Log.Format) {
	case "text":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	logrus.AddHook(appNameHook{name: cfg.App.Name})
	return nil
}

type appNameHook struct {
	name string
}

func (h appNameHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h appNameHook) Fire(entry *logrus.Entry) error {
	if _, ok := entry.Data["app"]; !ok {
		entry.Data["app"] = h.name
	}
	return nil
}
