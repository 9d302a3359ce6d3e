package main

import (
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ukvd/vrmlookup/config"
	"github.com/ukvd/vrmlookup/log"
)

var configFile = flag.String("config", "config.yml", "Lookup service configuration filename")

var server = newLookupServer()

func main() {
	flag.Parse()

	log.Infof("Loading config: %s", *configFile)
	cfg, err := reloadConfig()
	if err != nil {
		log.Fatalf("error while loading config: %s", err)
	}
	log.Infof("Loading config %q: successful", *configFile)

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGHUP)
	go func() {
		for {
			switch <-c {
			case syscall.SIGHUP:
				log.Infof("SIGHUP received. Going to reload config %s ...", *configFile)
				if _, err := reloadConfig(); err != nil {
					log.Errorf("error while reloading config: %s", err)
					continue
				}
				log.Infof("Reloading config %s: successful", *configFile)
			}
		}
	}()

	serve(cfg.ListenAddr)
}

func serve(addr string) {
	if len(addr) == 0 {
		panic("BUG: broken config validation - `listen_addr` is not configured")
	}

	ln, err := net.Listen("tcp4", addr)
	if err != nil {
		log.Fatalf("cannot listen for %q: %s", addr, err)
	}
	log.Infof("Serving http on %q", addr)

	s := newHTTPServer()
	if err := s.Serve(ln); err != nil {
		log.Fatalf("HTTP server error on %q: %s", addr, err)
	}
}

func newHTTPServer() *http.Server {
	return &http.Server{
		Handler:           handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       time.Minute,
		ErrorLog:          log.ErrorLogger,
	}
}

// reloadConfig reloads the config file and applies it to the running
// server. Called at startup and on SIGHUP.
func reloadConfig() (*config.Config, error) {
	cfg, err := config.LoadFile(*configFile)
	if err != nil {
		return nil, fmt.Errorf("can't load config %q: %w", *configFile, err)
	}

	server.applyConfig(cfg)
	log.SetDebug(cfg.LogDebug)

	return cfg, nil
}
