package observers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/kilianp07/cityguard/core/model"
)

// Snapshotter returns the current snapshot of every reachable observer.
type Snapshotter interface {
	Snapshots(ctx context.Context) []model.ObserverSnapshot
}

// NewHandler exposes observer snapshots via GET /api/observers. The busy
// query parameter filters on the busy flag.
func NewHandler(s Snapshotter, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		snaps := s.Snapshots(r.Context())
		if b := r.URL.Query().Get("busy"); b != "" {
			want := b == "true"
			kept := snaps[:0]
			for _, sn := range snaps {
				if sn.Busy == want {
					kept = append(kept, sn)
				}
			}
			snaps = kept
		}
		if snaps == nil {
			snaps = []model.ObserverSnapshot{}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snaps); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}
