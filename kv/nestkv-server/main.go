package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pingcap-incubator/nestkv/kv/config"
	"github.com/pingcap-incubator/nestkv/kv/server"
	"github.com/pingcap-incubator/nestkv/kv/server/api"
	"github.com/pingcap-incubator/nestkv/kv/storage"
	"github.com/pingcap/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var (
	configPath  string
	addr        string
	logLevel    string
	logFile     string
	configCheck bool
)

func bindFlags(flags *pflag.FlagSet) {
	flags.StringVar(&configPath, "config", "", "config file path")
	flags.StringVar(&addr, "addr", "", "HTTP listen address")
	flags.StringVarP(&logLevel, "log-level", "L", "", "log level: debug, info, warn, error, fatal")
	flags.StringVar(&logFile, "log-file", "", "log file path")
	flags.BoolVar(&configCheck, "config-check", false, "check config file validity and exit")
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "nestkv-server",
		Short: "NestKV server",
		Args:  cobra.NoArgs,
		Run:   runServer,
	}
	bindFlags(rootCmd.Flags())

	if err := rootCmd.Execute(); err != nil {
		exit(1)
	}
}

// loadConfig reads the config file, then applies the flags the user set.
func loadConfig(flags *pflag.FlagSet) (*config.Config, error) {
	conf := config.NewDefaultConfig()
	if configPath != "" {
		if err := conf.FromFile(configPath); err != nil {
			return nil, err
		}
	}
	if flags.Changed("addr") {
		conf.Addr = addr
	}
	if flags.Changed("log-level") {
		conf.Log.Level = logLevel
	}
	if flags.Changed("log-file") {
		conf.Log.File.Filename = logFile
	}
	return conf, conf.Adjust()
}

func runServer(cmd *cobra.Command, args []string) {
	conf, err := loadConfig(cmd.Flags())
	if err != nil {
		log.Fatal("load config failed", zap.Error(err))
	}

	if configCheck {
		for _, msg := range conf.WarningMsgs {
			fmt.Fprintln(os.Stderr, msg)
		}
		fmt.Println("config check successful")
		exit(0)
	}

	err = conf.SetupLogger()
	if err == nil {
		log.ReplaceGlobals(conf.GetZapLogger(), conf.GetZapLogProperties())
	} else {
		log.Fatal("initialize logger error", zap.Error(err))
	}
	// Flushing any buffered log entries
	defer log.Sync()

	for _, msg := range conf.WarningMsgs {
		log.Warn(msg)
	}
	log.Info("nestkv config", zap.Stringer("config", conf))

	svr := server.NewServer(conf, storage.NewMemStorage())
	httpSvr := &http.Server{
		Handler: api.NewHandler(svr, conf.API),
	}
	l, err := net.Listen("tcp", conf.Addr)
	if err != nil {
		log.Fatal("listen failed", zap.String("addr", conf.Addr), zap.Error(err))
	}

	sc := make(chan os.Signal, 1)
	signal.Notify(sc,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT)

	ctx, cancel := context.WithCancel(context.Background())
	var sig os.Signal
	go func() {
		sig = <-sc
		cancel()
	}()

	go func() {
		log.Info("http server started", zap.String("addr", l.Addr().String()))
		if err := httpSvr.Serve(l); err != nil && err != http.ErrServerClosed {
			log.Fatal("serve http failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Got signal to exit", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	if err := httpSvr.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown http server failed", zap.Error(err))
	}
	shutdownCancel()
	svr.Close()

	switch sig {
	case syscall.SIGTERM:
		exit(0)
	default:
		exit(1)
	}
}

func exit(code int) {
	log.Sync()
	os.Exit(code)
}
