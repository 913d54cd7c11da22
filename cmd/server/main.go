// Entry point
//
// Copyright (c) 2024  The gridhost Authors
//
// This file is part of gridhost.
//
// gridhost is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License,
// version 3, as published by the Free Software Foundation.
//
// gridhost is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the GNU
// Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public
// License, version 3, along with gridhost. If not, see
// <http://www.gnu.org/licenses/>

package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	grid "gridhost"
	"gridhost/conf"
	"gridhost/transport"
)

func main() {
	cfg, err := conf.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger := grid.NewLogger(cfg.Verbose)

	packs, err := grid.LoadPacks(cfg.PacksDir)
	if err != nil {
		log.Fatal(err)
	}

	srv := grid.NewServer(packs, logger)
	dispatcher := grid.NewDispatcher(logger)
	srv.RegisterHandlers(dispatcher)

	manager := transport.NewManager(dispatcher)
	manager.OnConnect = func(c *transport.Conn) { srv.OnConnect(c) }
	manager.OnDisconnect = func(c *transport.Conn) { srv.OnDisconnect(c) }
	manager.PingEnabled = cfg.Ping.Enabled
	if cfg.Ping.IntervalSeconds > 0 {
		manager.PingInterval = time.Duration(cfg.Ping.IntervalSeconds) * time.Second
	}

	http.Handle("/socket", manager)

	httpServer := &http.Server{Addr: ":" + cfg.Port}

	go func() {
		logger.Infof("listening on :%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("server exited: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	logger.Infof("shutting down")
	_ = httpServer.Close()
}
