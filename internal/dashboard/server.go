package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/qepting91/plandit-scraper/internal/storage"
)

const chartSample = 1000

// Server renders live charts over collected posts: content mix, keyword
// frequency and sentiment split.
type Server struct {
	store storage.Store
	http  *http.Server
}

func NewServer(store storage.Store, port string) *Server {
	s := &Server{store: store}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.render)

	s.http = &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Start() error {
	slog.Info("dashboard listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request) {
	posts, err := s.store.Posts(r.Context(), storage.PostQuery{Limit: chartSample})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// 1. Content mix
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Content Mix"}),
		charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros}),
	)

	kindCounts := make(map[string]int)
	for _, p := range posts {
		kindCounts[string(p.Kind)]++
	}

	var pieItems []opts.PieData
	for k, v := range kindCounts {
		pieItems = append(pieItems, opts.PieData{Name: k, Value: v})
	}
	pie.AddSeries("Posts", pieItems)

	// 2. Keyword frequency
	bar := charts.NewBar()
	bar.SetGlobalOptions(charts.WithTitleOpts(opts.Title{Title: "Top Keywords"}))

	kwCounts := make(map[string]int)
	for _, p := range posts {
		for _, k := range strings.Split(p.Keywords, ",") {
			if k = strings.TrimSpace(k); k != "" {
				kwCounts[k]++
			}
		}
	}

	var barX []string
	var barY []opts.BarData
	for k, v := range kwCounts {
		barX = append(barX, k)
		barY = append(barY, opts.BarData{Value: v})
	}
	bar.SetXAxis(barX).AddSeries("Mentions", barY)

	// 3. Sentiment split
	sentiment := charts.NewPie()
	sentiment.SetGlobalOptions(charts.WithTitleOpts(opts.Title{Title: "Sentiment"}))

	labelCounts := make(map[string]int)
	for _, p := range posts {
		if p.SentimentLabel != "" {
			labelCounts[p.SentimentLabel]++
		}
	}

	var sentItems []opts.PieData
	for k, v := range labelCounts {
		sentItems = append(sentItems, opts.PieData{Name: k, Value: v})
	}
	sentiment.AddSeries("Posts", sentItems)

	pie.Render(w)
	bar.Render(w)
	sentiment.Render(w)
}
