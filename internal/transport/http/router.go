package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/zomestaydeveloper/Zomestay-sub001/internal/metrics"
)

// RouterConfig carries the services behind each endpoint group.
type RouterConfig struct {
	Logger       logrus.FieldLogger
	CORSOrigins  []string
	DB           Pinger
	Availability AvailabilityChecker
	Holds        HoldManager
	Orders       OrderCreator
	Cash         CashConfirmer
	Gateway      GatewayEventHandler
	Webhook      WebhookOptions
	Board        BoardReader
	Status       StatusManager
	Inventory    InventoryAdmin
}

// NewRouter wires every endpoint behind the shared middleware stack.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(logger))
	r.Use(CORS(cfg.CORSOrigins))
	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)

	r.Get("/health", HealthHandler(cfg.DB))
	r.Handle("/metrics", metrics.Handler())

	r.Post("/holds/release", HandleReleaseHold(cfg.Holds, logger))
	r.Post("/holds/extend", HandleExtendHold(cfg.Holds, logger))
	r.Post("/webhooks/payments", HandlePaymentWebhook(cfg.Gateway, cfg.Webhook, logger))
	r.Post("/room-types/{roomTypeID}/rooms", HandleAddRoom(cfg.Inventory, logger))

	r.Route("/properties/{propertyID}", func(r chi.Router) {
		r.Get("/availability", HandleCheckAvailability(cfg.Availability, logger))
		r.Post("/holds", HandleCreateHold(cfg.Holds, logger))
		r.Post("/orders", HandleCreateOrder(cfg.Orders, logger))
		r.Post("/bookings/cash", HandleConfirmCash(cfg.Cash, logger))
		r.Get("/board", HandleBoard(cfg.Board, logger))
		r.Post("/room-status", HandlePlaceStatus(cfg.Status, logger))
		r.Delete("/room-status/{recordID}", HandleReleaseStatus(cfg.Status, logger))
		r.Get("/room-types", HandleRoomTypes(cfg.Inventory, logger))
		r.Post("/room-types", HandleRoomTypes(cfg.Inventory, logger))
	})

	return r
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, codeNotFound, "not found")
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
}
