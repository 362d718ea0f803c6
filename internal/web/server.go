// Package web serves the read-only widget page: a render of the persisted
// tracking snapshot, nothing more. It holds no logic of its own.
package web

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/Tricked-dev/SolidVerdant/internal/surface"
	"github.com/brimstone/logger"
)

var log = logger.New()

type Server struct {
	widget *surface.WidgetStore
	now    func() time.Time
}

func NewServer(widget *surface.WidgetStore) *Server {
	return &Server{widget: widget, now: time.Now}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	return mux
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap, err := s.widget.Load()
	if err != nil {
		fmt.Fprintf(w, "Error loading tracking state")
		return
	}

	fmt.Fprintf(w, `<html>
<title>SolidVerdant</title>
<meta name="viewport" content="width=device-width,initial-scale=1">
<meta http-equiv="refresh" content="30">
<style>
body {
display: flex;
width: 100%%;
height: 100%%;
margin: auto;
align-items:center;
justify-content:center;
text-align: center;
}
</style>
<body><h1>%s</h1>`, surface.RenderWidget(snap, s.now()))
}

func (s *Server) ListenAndServe(port string) error {
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = "8137"
	}
	log.Info("Ready to serve",
		log.Field("port", port),
	)
	return http.ListenAndServe(":"+port, s.Handler())
}
