package clickhouse

import "fmt"

// Schema returns the DDL for the price bar, event and tagged bar tables.
// ReplacingMergeTree keeps the latest row per key, which matches how the
// normalizer resolves duplicate timestamps.
func Schema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.bars (
	symbol      LowCardinality(String),
	interval    LowCardinality(String),
	ts          DateTime64(3, 'UTC'),
	open        Float64,
	high        Float64,
	low         Float64,
	close       Float64,
	adj_close   Float64,
	volume      Float64,
	ingested_at DateTime64(3, 'UTC') DEFAULT now64(3)
) ENGINE = ReplacingMergeTree(ingested_at)
ORDER BY (symbol, interval, ts)`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.events (
	ts          DateTime64(3, 'UTC'),
	name        String,
	source      LowCardinality(String),
	ingested_at DateTime64(3, 'UTC') DEFAULT now64(3)
) ENGINE = ReplacingMergeTree(ingested_at)
ORDER BY (ts, name)`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.tagged_bars (
	symbol       LowCardinality(String),
	interval     LowCardinality(String),
	ts           DateTime64(3, 'UTC'),
	session      LowCardinality(String),
	close        Float64,
	event_names  String,
	event_tier   UInt8,
	event_flags  Array(String),
	excluded     UInt8,
	computed_at  DateTime64(3, 'UTC') DEFAULT now64(3)
) ENGINE = ReplacingMergeTree(computed_at)
ORDER BY (symbol, interval, ts)`, database),
	}
}
