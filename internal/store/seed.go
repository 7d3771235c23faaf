package store

import "github.com/vyrodovalexey/inventory-dashboard/internal/model"

// DemoItems returns the sample inventory loaded on startup when demo data
// is enabled.
func DemoItems() []model.Item {
	return []model.Item{
		{ID: "1", Name: "Laptop", Category: "Electronics", Quantity: 15, Price: 999.99},
		{ID: "2", Name: "Desk Chair", Category: "Furniture", Quantity: 8, Price: 199.99},
		{ID: "3", Name: "Coffee Maker", Category: "Appliances", Quantity: 12, Price: 79.99},
	}
}
