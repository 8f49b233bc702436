// Package querysvc serves the read-only geolife aggregation queries over
// http in json format.
package querysvc

import (
	"encoding/json"
	logger "log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/OpenTrailTools/geolifestore/business/data/geolife"
	"github.com/jmoiron/sqlx"
)

const defaultTopK = 10
const maxTopK = 100
const maxRadiusMeters = 100000

//defaultHttpHandler simple default http handler for default route
type defaultHttpHandler struct {
}

//ServeHTTP implements defaultHttpHandler http.Handler interface
func (h *defaultHttpHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Add("Application-Status", "OK")
}

// WebService owns the handlers of the query endpoints
type WebService struct {
	log *logger.Logger
	db  *sqlx.DB
}

// MakeWebService creates WebService over db
func MakeWebService(log *logger.Logger, db *sqlx.DB) *WebService {
	return &WebService{
		log: log,
		db:  db,
	}
}

// Router builds the route table
func (s *WebService) Router() *mux.Router {
	router := mux.NewRouter()
	router.Handle("/", &defaultHttpHandler{})
	router.HandleFunc("/counts", s.handleCounts)
	router.HandleFunc("/modes/top", s.handleTopModes)
	router.HandleFunc("/users/top", s.handleTopUsers)
	router.HandleFunc("/users/altitude-gains", s.handleAltitudeGains)
	router.HandleFunc("/users/near", s.handleUsersNear)
	router.HandleFunc("/activities/day-types", s.handleDayTypes)
	return router
}

func (s *WebService) handleCounts(w http.ResponseWriter, _ *http.Request) {
	counts, err := geolife.GetCounts(s.db)
	if err != nil {
		s.serveQueryError(w, err)
		return
	}
	s.serveJSON(w, counts)
}

func (s *WebService) handleTopModes(w http.ResponseWriter, r *http.Request) {
	k, ok := s.topKParam(w, r)
	if !ok {
		return
	}
	modes, err := geolife.TopTransportationModes(s.db, k)
	if err != nil {
		s.serveQueryError(w, err)
		return
	}
	s.serveJSON(w, modes)
}

func (s *WebService) handleTopUsers(w http.ResponseWriter, r *http.Request) {
	k, ok := s.topKParam(w, r)
	if !ok {
		return
	}
	users, err := geolife.MostActiveUsers(s.db, k)
	if err != nil {
		s.serveQueryError(w, err)
		return
	}
	s.serveJSON(w, users)
}

func (s *WebService) handleAltitudeGains(w http.ResponseWriter, r *http.Request) {
	k, ok := s.topKParam(w, r)
	if !ok {
		return
	}
	gains, err := geolife.UserAltitudeGains(s.db, k)
	if err != nil {
		s.serveQueryError(w, err)
		return
	}
	s.serveJSON(w, gains)
}

func (s *WebService) handleUsersNear(w http.ResponseWriter, r *http.Request) {
	lat, err := strconv.ParseFloat(r.FormValue("lat"), 64)
	if err != nil || lat < -90 || lat > 90 {
		http.Error(w, "lat must be a latitude in degrees", http.StatusBadRequest)
		return
	}
	lon, err := strconv.ParseFloat(r.FormValue("lon"), 64)
	if err != nil || lon < -180 || lon > 180 {
		http.Error(w, "lon must be a longitude in degrees", http.StatusBadRequest)
		return
	}
	radius, err := strconv.ParseFloat(r.FormValue("radius"), 64)
	if err != nil || radius <= 0 || radius > maxRadiusMeters {
		http.Error(w, "radius must be meters between 0 and 100000", http.StatusBadRequest)
		return
	}
	userIds, err := geolife.UsersNear(s.db, lat, lon, radius)
	if err != nil {
		s.serveQueryError(w, err)
		return
	}
	s.serveJSON(w, userIds)
}

func (s *WebService) handleDayTypes(w http.ResponseWriter, _ *http.Request) {
	counts, err := geolife.ActivityDayTypes(s.db)
	if err != nil {
		s.serveQueryError(w, err)
		return
	}
	s.serveJSON(w, counts)
}

// topKParam reads the optional k form value, bounded to maxTopK. Writes a
// 400 and returns false when k is unusable.
func (s *WebService) topKParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	value := r.FormValue("k")
	if value == "" {
		return defaultTopK, true
	}
	k, err := strconv.Atoi(value)
	if err != nil || k < 1 || k > maxTopK {
		http.Error(w, "k must be between 1 and 100", http.StatusBadRequest)
		return 0, false
	}
	return k, true
}

func (s *WebService) serveQueryError(w http.ResponseWriter, err error) {
	s.log.Printf("query failed, error:%v", err)
	http.Error(w, "Error serving request", http.StatusInternalServerError)
}

func (s *WebService) serveJSON(w http.ResponseWriter, payload interface{}) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		s.log.Printf("Error marshaling response to json: error:%v\n", err)
		http.Error(w, "Error serving request", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err = w.Write(jsonData); err != nil {
		s.log.Printf("Error writing json response: %s", err)
	}
}
