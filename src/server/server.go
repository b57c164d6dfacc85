// server.go
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"DataInsight/src/report"
	"DataInsight/src/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server 日志、报表、图表和指标的HTTP接口
type Server struct {
	Generator *report.Generator
	Source    report.Source       // POST /run 使用的输入，为nil时不提供该接口
	Logger    *storage.Logger
	Gatherer  prometheus.Gatherer // 为nil时使用prometheus.DefaultGatherer
}

// Routes 注册路由
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/logs", s.streamLogs)
	r.Get("/report", s.getReport)
	r.Get("/charts/{name}", s.getChart)
	if s.Source != nil {
		r.Post("/run", s.runReport)
	}

	gatherer := s.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}

// ListenAndServe 启动服务，ctx取消后优雅退出
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.ListenAndServe()
	}()
	s.Logger.Info("HTTP服务已启动: " + addr)

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errChan; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// streamLogs 持续输出新的日志，直到客户端断开
func (s *Server) streamLogs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	logChan := s.Logger.Subscribe()
	defer s.Logger.Unsubscribe(logChan)

	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	for {
		select {
		case msg := <-logChan:
			// 写入失败(如客户端断开连接)则退出
			if _, err := fmt.Fprint(w, msg); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	res := s.Generator.Last()
	if res == nil {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, map[string]string{"error": "no report yet"})
		return
	}
	render.JSON(w, r, res.View())
}

// getChart 只提供最近一次生成的图表
func (s *Server) getChart(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	res := s.Generator.Last()
	if res == nil || name != filepath.Base(name) || !strings.EqualFold(filepath.Ext(name), ".png") {
		http.NotFound(w, r)
		return
	}

	for _, path := range res.Charts {
		if filepath.Base(path) != name {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			break
		}
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeFile(w, r, path)
		return
	}
	http.NotFound(w, r)
}

func (s *Server) runReport(w http.ResponseWriter, r *http.Request) {
	res, err := s.Generator.Run(r.Context(), s.Source)
	if err != nil {
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, map[string]string{"error": err.Error()})
		return
	}
	if res == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	render.JSON(w, r, res.View())
}
