package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"mrsmoothy/middleware"
	"mrsmoothy/utils"
)

type RouterOptions struct {
	Session middleware.SessionOptions
	// Metrics serves /metrics when set.
	Metrics http.Handler
	// Middleware runs inside the session middleware, in order.
	Middleware []mux.MiddlewareFunc
}

func NewRouter(h *Handler, opts RouterOptions) *mux.Router {
	mainRouter := mux.NewRouter()
	mainRouter.Use(middleware.Sessions(opts.Session))
	for _, m := range opts.Middleware {
		mainRouter.Use(m)
	}
	mainRouter.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondWithError(w, http.StatusNotFound, "Not found", nil)
	})

	mainRouter.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	if opts.Metrics != nil {
		mainRouter.Handle("/metrics", opts.Metrics).Methods(http.MethodGet)
	}

	// JSON bodies are checked before the handler runs.
	body := func(f http.HandlerFunc) http.Handler { return middleware.ValidateRequestBody(f) }

	api := mainRouter.PathPrefix("/api").Subrouter()

	api.HandleFunc("/menu/ingredients", h.Ingredients).Methods(http.MethodGet)
	api.HandleFunc("/menu/ingredients/seasonal", h.SeasonalIngredients).Methods(http.MethodGet)
	api.HandleFunc("/menu/cup-sizes", h.CupSizes).Methods(http.MethodGet)
	api.HandleFunc("/menu/drinks", h.Drinks).Methods(http.MethodGet)
	api.HandleFunc("/menu/drinks/{id:[0-9]+}", h.Drink).Methods(http.MethodGet)
	api.HandleFunc("/menu/nutrition", h.Nutrition).Methods(http.MethodGet)
	api.Handle("/quote", body(h.Quote)).Methods(http.MethodPost)

	api.HandleFunc("/cart", h.GetCart).Methods(http.MethodGet)
	api.Handle("/cart/items", body(h.AddToCart)).Methods(http.MethodPost)
	api.HandleFunc("/cart/items/{id}", h.RemoveFromCart).Methods(http.MethodDelete)
	api.HandleFunc("/cart", h.ClearCart).Methods(http.MethodDelete)

	api.Handle("/checkout", body(h.Checkout)).Methods(http.MethodPost)
	api.HandleFunc("/orders", h.MyOrders).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id:[0-9]+}", h.Order).Methods(http.MethodGet)

	api.Handle("/auth/login", body(h.Login)).Methods(http.MethodPost)
	api.Handle("/auth/register", body(h.Register)).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", h.Logout).Methods(http.MethodPost)
	api.HandleFunc("/auth/me", h.Me).Methods(http.MethodGet)

	api.HandleFunc("/events", h.Events).Methods(http.MethodGet)

	adminRouter := api.PathPrefix("/admin").Subrouter()
	adminRouter.Use(middleware.RequireAdmin(h.state))

	adminRouter.HandleFunc("/ingredients", listHandler(h, h.admin.Ingredients)).Methods(http.MethodGet)
	adminRouter.Handle("/ingredients", body(createHandler(h, h.admin.CreateIngredient))).Methods(http.MethodPost)
	adminRouter.Handle("/ingredients/{id:[0-9]+}", body(updateHandler(h, h.admin.UpdateIngredient))).Methods(http.MethodPut)
	adminRouter.HandleFunc("/ingredients/{id:[0-9]+}", deleteHandler(h, h.admin.DeleteIngredient)).Methods(http.MethodDelete)

	adminRouter.HandleFunc("/drinks", listHandler(h, h.admin.Drinks)).Methods(http.MethodGet)
	adminRouter.Handle("/drinks", body(createHandler(h, h.admin.CreateDrink))).Methods(http.MethodPost)
	adminRouter.Handle("/drinks/{id:[0-9]+}", body(updateHandler(h, h.admin.UpdateDrink))).Methods(http.MethodPut)
	adminRouter.HandleFunc("/drinks/{id:[0-9]+}", deleteHandler(h, h.admin.DeleteDrink)).Methods(http.MethodDelete)

	adminRouter.HandleFunc("/cup-sizes", listHandler(h, h.admin.CupSizes)).Methods(http.MethodGet)
	adminRouter.Handle("/cup-sizes", body(createHandler(h, h.admin.CreateCupSize))).Methods(http.MethodPost)
	adminRouter.Handle("/cup-sizes/{id:[0-9]+}", body(updateHandler(h, h.admin.UpdateCupSize))).Methods(http.MethodPut)
	adminRouter.HandleFunc("/cup-sizes/{id:[0-9]+}", deleteHandler(h, h.admin.DeleteCupSize)).Methods(http.MethodDelete)

	adminRouter.HandleFunc("/orders", h.AdminOrders).Methods(http.MethodGet)
	adminRouter.Handle("/orders/{id:[0-9]+}/status", body(h.UpdateOrderStatus)).Methods(http.MethodPut)
	adminRouter.HandleFunc("/upload", h.UploadImage).Methods(http.MethodPost)

	return mainRouter
}
