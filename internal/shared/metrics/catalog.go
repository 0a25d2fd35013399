package metrics

import "github.com/prometheus/client_golang/prometheus"

// Catalog agrupa os contadores das operações sobre as coleções
// Métodos aceitam receptor nil (métricas desligadas)
type Catalog struct {
	Upserts     *prometheus.CounterVec
	Deletes     *prometheus.CounterVec
	StoreErrors *prometheus.CounterVec
}

// NewCatalog cria e registra os contadores em reg
func NewCatalog(reg prometheus.Registerer) *Catalog {
	c := &Catalog{
		Upserts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_records_upserted_total",
			Help: "registros gravados por coleção e operação",
		}, []string{"collection", "op"}),
		Deletes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_records_deleted_total",
			Help: "registros removidos por coleção",
		}, []string{"collection"}),
		StoreErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_store_errors_total",
			Help: "falhas de leitura/escrita no store",
		}, []string{"collection", "stage"}),
	}
	reg.MustRegister(c.Upserts, c.Deletes, c.StoreErrors)
	return c
}

func (c *Catalog) Upserted(collection, op string, n int) {
	if c == nil || n == 0 {
		return
	}
	c.Upserts.WithLabelValues(collection, op).Add(float64(n))
}

func (c *Catalog) Deleted(collection string) {
	if c == nil {
		return
	}
	c.Deletes.WithLabelValues(collection).Inc()
}

func (c *Catalog) StoreError(collection, stage string) {
	if c == nil {
		return
	}
	c.StoreErrors.WithLabelValues(collection, stage).Inc()
}
