package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ingestCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "finbook_ingest_created_total",
		Help: "Transactions created by bulk ingestion.",
	})

	ingestStageDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finbook_ingest_stage_drops_total",
		Help: "Candidates absorbed per ingestion stage.",
	}, []string{"stage"})

	settlementsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "finbook_settlements_total",
		Help: "Credit card statements settled.",
	})
)
