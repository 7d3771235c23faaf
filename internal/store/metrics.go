package store

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vyrodovalexey/inventory-dashboard/internal/model"
)

const collectTimeout = 5 * time.Second

// Summarizer is the part of Store the metrics collector needs.
type Summarizer interface {
	Summary(ctx context.Context) (model.Summary, error)
}

// Collector exports inventory statistics to Prometheus. Values are read
// from the store on every scrape.
type Collector struct {
	source   Summarizer
	items    *prometheus.Desc
	lowStock *prometheus.Desc
	value    *prometheus.Desc
}

// NewCollector creates a Collector reading from source.
func NewCollector(source Summarizer) *Collector {
	return &Collector{
		source: source,
		items: prometheus.NewDesc(
			"inventory_items_total",
			"Number of items held in the inventory",
			nil, nil,
		),
		lowStock: prometheus.NewDesc(
			"inventory_low_stock_items",
			"Number of items with quantity below the low stock threshold",
			nil, nil,
		),
		value: prometheus.NewDesc(
			"inventory_total_value",
			"Sum of price times quantity over all items",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.items
	ch <- c.lowStock
	ch <- c.value
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), collectTimeout)
	defer cancel()

	summary, err := c.source.Summary(ctx)
	if err != nil {
		ch <- prometheus.NewInvalidMetric(c.items, err)
		return
	}

	ch <- prometheus.MustNewConstMetric(c.items, prometheus.GaugeValue, float64(summary.TotalItems))
	ch <- prometheus.MustNewConstMetric(c.lowStock, prometheus.GaugeValue, float64(summary.LowStockCount))
	ch <- prometheus.MustNewConstMetric(c.value, prometheus.GaugeValue, summary.TotalValue)
}
