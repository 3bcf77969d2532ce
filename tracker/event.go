package tracker

// Event is the wire envelope posted to the collector's /track endpoint.
// Every event carries a full context snapshot taken at emission time, so two
// events from the same session may report different page URLs.
type Event struct {
	SessionID        string         `json:"session_id"`
	UserID           *string        `json:"user_id"`
	AppType          string         `json:"app_type"`
	PageURL          string         `json:"page_url"`
	PageTitle        string         `json:"page_title"`
	Referrer         string         `json:"referrer"`
	ScreenResolution string         `json:"screen_resolution"`
	Timestamp        string         `json:"timestamp"`
	EventType        string         `json:"event_type"`
	EventName        string         `json:"event_name"`
	EventData        map[string]any `json:"event_data"`
}

// Well-known event types. The set is open ended; Track accepts any string.
const (
	EventPageView             = "page_view"
	EventClick                = "click"
	EventFormSubmit           = "form_submit"
	EventSearch               = "search"
	EventProductView          = "product_view"
	EventAddToCart            = "add_to_cart"
	EventRemoveFromCart       = "remove_from_cart"
	EventCheckoutStart        = "checkout_start"
	EventPurchase             = "purchase"
	EventProductAdd           = "product_add"
	EventProductEdit          = "product_edit"
	EventOrderStatusUpdate    = "order_status_update"
	EventUserManagement       = "user_management"
	EventSystemConfig         = "system_config"
	EventReportGeneration     = "report_generation"
	EventOrderAction          = "order_action"
	EventDeliveryStatusUpdate = "delivery_status_update"
	EventRouteView            = "route_view"
	EventEarningsView         = "earnings_view"
)

// App types reported by the marketplace front ends.
const (
	AppAdmin  = "admin"
	AppVendor = "vendor"
	AppBuyer  = "buyer"
	AppRider  = "rider"
)
