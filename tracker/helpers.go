package tracker

import "net/url"

// The helpers below fix the event_type/event_name convention and payload keys
// for known marketplace scenarios. They only shape event_data and delegate to
// Track.

// TrackPageView records a view of the current page.
func (t *Tracker) TrackPageView() {
	data := map[string]any{"path": "", "search": "", "hash": ""}
	if u, err := url.Parse(t.env.CurrentURL()); err == nil {
		data["path"] = u.Path
		if u.RawQuery != "" {
			data["search"] = "?" + u.RawQuery
		}
		if u.Fragment != "" {
			data["hash"] = "#" + u.Fragment
		}
	}
	t.Track(EventPageView, "Page View", data)
}

// TrackClick records a click on a named element. elementType is usually
// "button" or "link"; extra fields are merged into event_data.
func (t *Tracker) TrackClick(elementName, elementType string, extra map[string]any) {
	data := map[string]any{
		"element_name": elementName,
		"element_type": elementType,
	}
	for k, v := range extra {
		data[k] = v
	}
	t.Track(EventClick, "Click: "+elementName, data)
}

// TrackFormSubmit records a form submission.
func (t *Tracker) TrackFormSubmit(formName string, extra map[string]any) {
	data := map[string]any{"form_name": formName}
	for k, v := range extra {
		data[k] = v
	}
	t.Track(EventFormSubmit, "Form Submit: "+formName, data)
}

// TrackSearch records a search query. Pass a negative resultsCount when the
// count is unknown.
func (t *Tracker) TrackSearch(query string, resultsCount int) {
	data := map[string]any{"query": query, "results_count": nil}
	if resultsCount >= 0 {
		data["results_count"] = resultsCount
	}
	t.Track(EventSearch, "Search Query", data)
}

// Buyer events.

func (t *Tracker) TrackProductView(productID, productName, category string) {
	t.Track(EventProductView, "Product View", map[string]any{
		"product_id":   productID,
		"product_name": productName,
		"category":     category,
	})
}

func (t *Tracker) TrackAddToCart(productID, productName string, quantity int, price float64) {
	t.Track(EventAddToCart, "Add to Cart", map[string]any{
		"product_id":   productID,
		"product_name": productName,
		"quantity":     quantity,
		"price":        price,
	})
}

func (t *Tracker) TrackRemoveFromCart(productID, productName string, quantity int) {
	t.Track(EventRemoveFromCart, "Remove from Cart", map[string]any{
		"product_id":   productID,
		"product_name": productName,
		"quantity":     quantity,
	})
}

func (t *Tracker) TrackCheckoutStart(cartValue float64, itemCount int) {
	t.Track(EventCheckoutStart, "Checkout Started", map[string]any{
		"cart_value": cartValue,
		"item_count": itemCount,
	})
}

func (t *Tracker) TrackPurchase(orderID string, orderValue float64, itemCount int, paymentMethod string) {
	t.Track(EventPurchase, "Purchase Completed", map[string]any{
		"order_id":       orderID,
		"order_value":    orderValue,
		"item_count":     itemCount,
		"payment_method": paymentMethod,
	})
}

// Vendor events.

func (t *Tracker) TrackProductAdd(productID, productName, category string) {
	t.Track(EventProductAdd, "Product Added", map[string]any{
		"product_id":   productID,
		"product_name": productName,
		"category":     category,
	})
}

func (t *Tracker) TrackProductEdit(productID, productName string, changes map[string]any) {
	if changes == nil {
		changes = map[string]any{}
	}
	t.Track(EventProductEdit, "Product Edited", map[string]any{
		"product_id":   productID,
		"product_name": productName,
		"changes":      changes,
	})
}

func (t *Tracker) TrackOrderStatusUpdate(orderID, oldStatus, newStatus string) {
	t.Track(EventOrderStatusUpdate, "Order Status Updated", map[string]any{
		"order_id":   orderID,
		"old_status": oldStatus,
		"new_status": newStatus,
	})
}

// Admin events.

func (t *Tracker) TrackUserManagement(action, targetUserID, userType string) {
	t.Track(EventUserManagement, "User "+action, map[string]any{
		"action":         action,
		"target_user_id": targetUserID,
		"user_type":      userType,
	})
}

func (t *Tracker) TrackSystemConfig(configName string, oldValue, newValue any) {
	t.Track(EventSystemConfig, "System Configuration Changed", map[string]any{
		"config_name": configName,
		"old_value":   oldValue,
		"new_value":   newValue,
	})
}

func (t *Tracker) TrackReportGeneration(reportType string, filters map[string]any) {
	if filters == nil {
		filters = map[string]any{}
	}
	t.Track(EventReportGeneration, "Report Generated", map[string]any{
		"report_type": reportType,
		"filters":     filters,
	})
}

// Rider events.

func (t *Tracker) TrackOrderAction(action, orderID string, orderValue float64) {
	t.Track(EventOrderAction, "Order "+action, map[string]any{
		"action":      action,
		"order_id":    orderID,
		"order_value": orderValue,
	})
}

func (t *Tracker) TrackDeliveryStatusUpdate(orderID, oldStatus, newStatus, location string) {
	t.Track(EventDeliveryStatusUpdate, "Delivery Status Updated", map[string]any{
		"order_id":   orderID,
		"old_status": oldStatus,
		"new_status": newStatus,
		"location":   location,
	})
}

func (t *Tracker) TrackRouteView(orderID, routeType string) {
	t.Track(EventRouteView, "Route Viewed", map[string]any{
		"order_id":   orderID,
		"route_type": routeType,
	})
}

func (t *Tracker) TrackEarningsView(period string) {
	t.Track(EventEarningsView, "Earnings Viewed", map[string]any{
		"period": period,
	})
}

// TrackCustomEvent records an event outside the known scenarios.
func (t *Tracker) TrackCustomEvent(eventType, eventName string, eventData map[string]any) {
	t.Track(eventType, eventName, eventData)
}
