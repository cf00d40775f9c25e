// File: cmd/btpmuxdemo/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// btpmuxdemo runs a minimal BTP server: each inbound WebSocket connection
// is registered under the account given by its "account" query parameter,
// and every Prepare it sends is echoed back as a Fulfill carrying the same
// data. Demonstrates wiring facade.BTPMux into a real net/http server with
// signal-based graceful shutdown.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/momentics/btp-mux/account"
	"github.com/momentics/btp-mux/facade"
	"github.com/momentics/btp-mux/ilp"
	"github.com/momentics/btp-mux/upstream"
)

func main() {
	addr := flag.String("addr", ":9000", "WebSocket listen address")
	flag.Parse()

	cfg := facade.DefaultConfig()
	cfg.ListenAddr = *addr

	mux := facade.New(cfg, nil)
	if err := mux.Start(); err != nil {
		log.Fatalf("btpmuxdemo: failed to start: %v", err)
	}

	var connCount int64
	mux.Control().RegisterDebugProbe("connections", func() any { return atomic.LoadInt64(&connCount) })

	if err := mux.Bind(&echoHandler{}); err != nil {
		log.Fatalf("btpmuxdemo: failed to bind handler: %v", err)
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	srv := &http.Server{Addr: *addr}
	http.HandleFunc("/btp", func(w http.ResponseWriter, r *http.Request) {
		acc := r.URL.Query().Get("account")
		if acc == "" {
			http.Error(w, "missing account query parameter", http.StatusBadRequest)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("btpmuxdemo: upgrade failed: %v", err)
			return
		}
		atomic.AddInt64(&connCount, 1)
		session := mux.AddConnection(account.Static(acc), conn)
		go func() {
			<-session.Done()
			atomic.AddInt64(&connCount, -1)
		}()
	})
	http.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		m := mux.Metrics()
		log.Printf("btpmuxdemo: sessions=%d in=%d out=%d", m.NumSessions, m.InboundTraffic, m.OutboundTraffic)
		w.WriteHeader(http.StatusNoContent)
	})
	// /send issues one outgoing Prepare to the given account through
	// SendRequestAsync and waits on the returned channel for its result,
	// bounded by a 5-second timeout.
	http.HandleFunc("/send", func(w http.ResponseWriter, r *http.Request) {
		acc := r.URL.Query().Get("account")
		if acc == "" {
			http.Error(w, "missing account query parameter", http.StatusBadRequest)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		resultCh := mux.Mux().SendRequestAsync(ctx, account.Static(acc), ilp.Prepare{
			Destination: r.URL.Query().Get("destination"),
			Data:        []byte(r.URL.Query().Get("data")),
		})
		result := <-resultCh
		if result.Err != nil {
			http.Error(w, result.Err.Error(), http.StatusBadGateway)
			return
		}
		w.Write(result.Value.Data)
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func() {
		log.Printf("btpmuxdemo: listening on %s", *addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("btpmuxdemo: server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("btpmuxdemo: shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("btpmuxdemo: http shutdown error: %v", err)
	}
	if err := mux.Shutdown(); err != nil {
		log.Printf("btpmuxdemo: mux shutdown error: %v", err)
	}
	log.Println("btpmuxdemo: shutdown complete")
}

// echoHandler answers every inbound Prepare with a Fulfill carrying the
// same payload, for manual testing without a real upstream integration.
type echoHandler struct{}

func (echoHandler) HandleIncomingRequest(_ context.Context, req upstream.IncomingRequest) (ilp.Fulfill, error) {
	return ilp.Fulfill{Data: req.Prepare.Data}, nil
}
