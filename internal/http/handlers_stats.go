package http

import (
	"net/http"
	"strconv"
)

func (s *Server) handleStatsPartial(w http.ResponseWriter, r *http.Request) {
	q, err := ParseStatsQuery(r.URL.Query())
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	s.render(w, r, "stats", s.cachedStats(q))
}

// cachedStats keys views by store revision, so any mutation makes older
// entries unreachable and they simply age out.
func (s *Server) cachedStats(q statsQuery) statsView {
	key := strconv.FormatUint(s.ledger.Revision(), 10) + "|" + q.Filter.Key() + "|" + string(q.Granularity)
	v, _ := s.statsCache.GetOrCompute(key, func() (statsView, error) {
		return s.buildStatsView(q), nil
	})
	return v
}
