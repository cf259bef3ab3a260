package handlers

import "net/http"

// RegisterRoutes mounts the bridge's API on mux. Nil handlers are skipped so
// deployments without Postgres still serve the cache and monitor surface.
func RegisterRoutes(mux *http.ServeMux, bookings *BookingHandler, slots *SlotsHandler, mon *MonitorHandler, snipes *SnipeHandler, accounts *AccountHandler) {
	if bookings != nil {
		mux.HandleFunc("POST /api/v1/bookings", bookings.Start)
		mux.HandleFunc("GET /api/v1/bookings", bookings.List)
		mux.HandleFunc("GET /api/v1/bookings/{id}", bookings.Get)
		mux.HandleFunc("POST /api/v1/bookings/{id}/cancel", bookings.Cancel)
		mux.HandleFunc("GET /api/v1/runs/{id}", bookings.RunStatus)
		mux.HandleFunc("GET /api/v1/stats", bookings.Stats)
	}
	if slots != nil {
		mux.HandleFunc("GET /api/v1/slots", slots.Get)
		mux.HandleFunc("GET /api/v1/slots/consecutive", slots.Consecutive)
	}
	if mon != nil {
		mux.HandleFunc("POST /api/v1/monitor/start", mon.Start)
		mux.HandleFunc("POST /api/v1/monitor/stop", mon.Stop)
		mux.HandleFunc("GET /api/v1/monitor", mon.Status)
	}
	if snipes != nil {
		mux.HandleFunc("POST /api/v1/snipes", snipes.Create)
		mux.HandleFunc("GET /api/v1/snipes", snipes.List)
		mux.HandleFunc("GET /api/v1/snipes/{id}", snipes.Get)
		mux.HandleFunc("POST /api/v1/snipes/{id}/cancel", snipes.Cancel)
	}
	if accounts != nil {
		mux.HandleFunc("POST /api/v1/accounts", accounts.Create)
		mux.HandleFunc("GET /api/v1/accounts", accounts.List)
		mux.HandleFunc("POST /api/v1/accounts/{id}/deactivate", accounts.Deactivate)
	}
}
