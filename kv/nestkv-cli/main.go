package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pingcap-incubator/nestkv/kv/config"
	"github.com/pingcap-incubator/nestkv/kv/server"
	"github.com/pingcap-incubator/nestkv/kv/storage"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultCLILogLevel = "error"

var (
	configPath string
	logLevel   string
	scriptPath string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "nestkv-cli",
		Short: "NestKV interactive console",
		Args:  cobra.NoArgs,
		Run:   runConsole,
	}
	rootCmd.Flags().StringVar(&configPath, "config", "", "config file path, only the [txn] section is used")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "L", defaultCLILogLevel, "log level: debug, info, warn, error, fatal")
	rootCmd.Flags().StringVarP(&scriptPath, "file", "f", "", "run the commands in this file instead of prompting, - reads stdin")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	conf := config.NewDefaultConfig()
	if configPath != "" {
		if err := conf.FromFile(configPath); err != nil {
			return nil, err
		}
	}
	conf.Log.Level = logLevel
	return conf, conf.Adjust()
}

func runConsole(cmd *cobra.Command, args []string) {
	conf, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	if err = conf.SetupLogger(); err != nil {
		fmt.Fprintf(os.Stderr, "initialize logger failed: %v\n", err)
		os.Exit(1)
	}
	log.ReplaceGlobals(conf.GetZapLogger(), conf.GetZapLogProperties())
	defer log.Sync()

	svr := server.NewServer(conf, storage.NewMemStorage())
	defer svr.Close()
	sh := newShell(svr, os.Stdout)

	if scriptPath == "" {
		err = sh.loop()
	} else {
		err = runScriptFile(sh, scriptPath)
	}
	if err != nil {
		log.Error("console stopped", zap.Error(err))
	}
}

func runScriptFile(sh *shell, path string) error {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return errors.WithStack(err)
		}
		defer f.Close()
		r = f
	}
	return sh.runScript(r)
}
