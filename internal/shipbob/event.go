// Package shipbob models the ShipBob order_shipped webhook payload and
// provides the webhook subscription client.
package shipbob

// Event is the order_shipped webhook payload. Only the fields the
// enrichment pipeline reads are modeled; the rest of the delivery is
// ignored.
type Event struct {
	ReferenceID string     `json:"reference_id"`
	Shipments   []Shipment `json:"shipments"`
}

// Shipment is one physical shipment within an order
type Shipment struct {
	Products []Product `json:"products"`
}

// Product is one product line within a shipment
type Product struct {
	InventoryItems []InventoryItem `json:"inventory_items"`
}

// InventoryItem is one stocked unit, carrying the device serial numbers
// assigned at fulfillment time
type InventoryItem struct {
	SerialNumbers []string `json:"serial_numbers"`
}

// FirstSerial walks shipments, products and inventory items in document
// order and returns the first element of the first non-empty serial-numbers
// list. The walk stops at the first hit. Returns "" when no inventory item
// in the payload carries a serial number.
func (e *Event) FirstSerial() string {
	for _, shipment := range e.Shipments {
		for _, product := range shipment.Products {
			for _, item := range product.InventoryItems {
				if len(item.SerialNumbers) > 0 {
					return item.SerialNumbers[0]
				}
			}
		}
	}
	return ""
}
