package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"order_gateway/internal/domain"
	"order_gateway/internal/event"
	"order_gateway/internal/infra"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
)

// OrderGateway is the part of the order service the API exposes.
type OrderGateway interface {
	PlaceOrder(ctx context.Context, req domain.NewOrderRequest) (event.ActionResult, error)
	ModifyOrder(ctx context.Context, req domain.ModifyOrderRequest) (event.ActionResult, error)
	CancelOrder(ctx context.Context, req domain.CancelOrderRequest) (event.ActionResult, error)

	GetSymbol(ctx context.Context, symbol string) (*domain.SymbolReference, error)
	GetPendingOrder(ctx context.Context, id string) (*domain.PendingOrder, error)
	ListSymbols(ctx context.Context) ([]domain.SymbolReference, error)
	ListPendingOrders(ctx context.Context) ([]domain.PendingOrder, error)
	ListOrderHistory(ctx context.Context) ([]domain.OrderHistoryRecord, error)
}

// Server handles REST API and WebSocket connections
type Server struct {
	orders  OrderGateway
	metrics *infra.Metrics
	router  *mux.Router
	hub     *Hub // WebSocket hub
	stopHub context.CancelFunc
	origins []string
	http    *http.Server

	upgrader websocket.Upgrader
}

// NewServer creates a new API server
func NewServer(orders OrderGateway, metrics *infra.Metrics, allowedOrigins []string) *Server {
	if metrics == nil {
		metrics = infra.GlobalMetrics
	}
	s := &Server{
		orders:  orders,
		metrics: metrics,
		router:  mux.NewRouter(),
		hub:     NewHub(),
		origins: allowedOrigins,
	}

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	// The hub runs for the life of the server, whether or not Start is called
	hubCtx, cancel := context.WithCancel(context.Background())
	s.stopHub = cancel
	go s.hub.Run(hubCtx)

	s.setupRoutes()
	return s
}

// Hub returns the websocket hub so results can be published to it.
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) setupRoutes() {
	// API v1 routes
	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(requestLogger)

	// Reference data
	api.HandleFunc("/symbols", s.handleListSymbols).Methods("GET")
	api.HandleFunc("/symbols/{symbol}", s.handleGetSymbol).Methods("GET")

	// Order state
	api.HandleFunc("/orders/pending", s.handleListPending).Methods("GET")
	api.HandleFunc("/orders/pending/{id}", s.handleGetPending).Methods("GET")
	api.HandleFunc("/orders/history", s.handleListHistory).Methods("GET")

	// Order submission
	api.HandleFunc("/orders", s.handlePlaceOrder).Methods("POST")
	api.HandleFunc("/orders/{id}/modify", s.handleModifyOrder).Methods("POST")
	api.HandleFunc("/orders/{id}/cancel", s.handleCancelOrder).Methods("POST")

	api.HandleFunc("/metrics", s.handleMetrics).Methods("GET")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the router wrapped with CORS.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", requestIDHeader},
		AllowCredentials: true,
	})
	return c.Handler(s.router)
}

// Start serves HTTP until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	slog.Info("API server starting", slog.String("addr", addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the websocket hub, stops accepting requests and waits for
// in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopHub()
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// ==============================
// Read Handlers
// ==============================

func (s *Server) handleListSymbols(w http.ResponseWriter, r *http.Request) {
	symbols, err := s.orders.ListSymbols(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "read failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, symbols)
}

func (s *Server) handleGetSymbol(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	ref, err := s.orders.GetSymbol(r.Context(), symbol)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "read failed", err.Error())
		return
	}
	if ref == nil {
		respondError(w, http.StatusNotFound, "symbol not found", symbol)
		return
	}
	respondJSON(w, http.StatusOK, ref)
}

func (s *Server) handleListPending(w http.ResponseWriter, r *http.Request) {
	orders, err := s.orders.ListPendingOrders(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "read failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (s *Server) handleGetPending(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	order, err := s.orders.GetPendingOrder(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "read failed", err.Error())
		return
	}
	if order == nil {
		respondError(w, http.StatusNotFound, "order not found", id)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.orders.ListOrderHistory(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "read failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, history)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.metrics.Snapshot())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.metrics.Snapshot().LogPoisoned {
		respondJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "degraded", LogPoisoned: true})
		return
	}
	respondJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// ==============================
// Submission Handlers
// ==============================

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req domain.NewOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	res, err := s.orders.PlaceOrder(r.Context(), req)
	respondResult(w, r, res, err)
}

func (s *Server) handleModifyOrder(w http.ResponseWriter, r *http.Request) {
	var body ModifyOrderBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	res, err := s.orders.ModifyOrder(r.Context(), domain.ModifyOrderRequest{
		ClientOrderID: mux.Vars(r)["id"],
		Symbol:        body.Symbol,
		Price:         body.Price,
		Quantity:      body.Quantity,
		Side:          body.Side,
	})
	respondResult(w, r, res, err)
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	res, err := s.orders.CancelOrder(r.Context(), domain.CancelOrderRequest{
		ClientOrderID: mux.Vars(r)["id"],
	})
	respondResult(w, r, res, err)
}

func respondResult(w http.ResponseWriter, r *http.Request, res event.ActionResult, err error) {
	status := resultStatus(res, err)
	if status >= http.StatusInternalServerError {
		slog.Warn("Order submission failed",
			slog.String("request_id", RequestIDFromContext(r.Context())),
			slog.String("action", res.Action),
			slog.Any("error", err))
	}
	respondJSON(w, status, res)
}

// resultStatus maps a workflow outcome to an HTTP status.
func resultStatus(res event.ActionResult, err error) int {
	switch res.Status {
	case event.StatusCommitted:
		return http.StatusOK
	case event.StatusRejected:
		if res.ErrorKind == domain.KindOrderNotFound {
			return http.StatusNotFound
		}
		return http.StatusUnprocessableEntity
	}

	if res.ErrorKind == domain.KindIoFailure || errors.Is(err, domain.ErrSequencerStopped) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
