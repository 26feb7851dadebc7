// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"time"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/trialzone/trialzone/internal/driver"
)

// guiAddr is fixed rather than configurable: the gui subcommand's status
// endpoint is a local operator aid, not a network-facing service (§4.E
// notes the GUI surface is read-only status, never a control plane).
const guiAddr = "127.0.0.1:8715"

// guiServer wraps the status-endpoint router and listener started for
// the `gui` subcommand, the way cc-backend's server.go keeps its own
// package-level router/server pair but packaged per-run instead of
// package-global, since a CLI run only ever starts one.
type guiServer struct {
	srv *http.Server
}

// startGUIServer wires a minimal read-only status router -- a health
// check and a JSON snapshot of the driver's progress -- behind the same
// gorilla/handlers logging/compression/recovery middleware stack
// cc-backend's own server.go applies to its router, then starts it on a
// background goroutine. Listener failures are logged, not fatal: a gui
// run should keep converting even if the status port can't bind.
func startGUIServer(d *driver.Driver) *guiServer {
	router := mux.NewRouter()

	router.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	router.HandleFunc("/status", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(map[string]any{
			"gui_mode":    d.GUIMode(),
			"trial_count": d.TrialCount(),
		})
	}).Methods(http.MethodGet)

	router.Use(handlers.CompressHandler)
	router.Use(handlers.RecoveryHandler(handlers.PrintRecoveryStack(true)))

	logged := handlers.CustomLoggingHandler(io.Discard, router, func(_ io.Writer, params handlers.LogFormatterParams) {
		cclog.Debugf("[GUI]> %s %s (%d, %dms)", params.Request.Method, params.URL.RequestURI(),
			params.StatusCode, time.Since(params.TimeStamp).Milliseconds())
	})

	srv := &http.Server{
		Addr:         guiAddr,
		Handler:      logged,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	listener, err := net.Listen("tcp", guiAddr)
	if err != nil {
		cclog.Warnf("[GUI]> status endpoint disabled, could not bind %s: %v", guiAddr, err)
		return &guiServer{}
	}

	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			cclog.Warnf("[GUI]> status endpoint stopped: %v", err)
		}
	}()
	cclog.Infof("[GUI]> status endpoint listening at http://%s", guiAddr)

	return &guiServer{srv: srv}
}

// shutdown gracefully stops the status endpoint, safe to call on a
// guiServer whose listener never bound.
func (g *guiServer) shutdown() {
	if g == nil || g.srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := g.srv.Shutdown(ctx); err != nil {
		cclog.Warnf("[GUI]> status endpoint shutdown: %v", err)
	}
}
