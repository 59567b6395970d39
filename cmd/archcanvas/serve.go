package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"archcanvas/internal/confirm"
	"archcanvas/internal/handler"
	"archcanvas/internal/hub"
	"archcanvas/internal/notify"
)

var (
	serveAddr   string
	serveResume string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the canvas over HTTP",
	Long: `Serves the canvas as a JSON API with a server-sent event stream at /events.
Drops and connections block until their prompts are answered through
POST /api/prompts/{id}.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "HTTP listen address (default from config)")
	serveCmd.Flags().StringVar(&serveResume, "resume", "", `Resume a saved session by id, or the latest with "latest"`)
	serveCmd.Flags().Lookup("resume").NoOptDefVal = resumeLatest
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Println("Starting archcanvas server...")

	var broker *confirm.Broker
	brokerSurface := func(sessionID string, pub notify.Publisher) confirm.Surface {
		broker = confirm.NewBroker(sessionID, pub)
		return broker
	}
	ws, err := openWorkspace(ctx, serveResume, brokerSurface, notify.NewLogSink(logger))
	if err != nil {
		return err
	}
	defer func() {
		if err := ws.close(); err != nil {
			log.Printf("Final save failed: %v", err)
		}
	}()
	log.Printf("Database opened: %s (session %s)", dbPath, ws.sessionID())

	sseHub := hub.New()
	events := make(chan notify.Event, 100)
	ws.bus.Subscribe(events)

	canvasHandler := handler.NewCanvasHandler(ws.engine, broker)
	canvasHandler.SetJournal(ws.repo)

	server := &http.Server{
		Addr:         addr,
		Handler:      canvasHandler.Routes(sseHub),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // drops and connections wait on prompts; /events streams
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sseHub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		sseHub.Consume(gctx, events)
		return nil
	})
	g.Go(func() error {
		return ws.autosave(gctx)
	})
	g.Go(func() error {
		log.Printf("Server listening on %s", addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		return nil
	})

	err = g.Wait()
	log.Println("Server stopped")
	return err
}
