// Package config loads the proxy configuration with koanf.
//
// Values are layered in this order, later layers winning:
//
//  1. Default(), built from each package's DefaultConfig
//  2. an optional YAML file
//  3. environment variables prefixed with VECTORPROXY_
//
// Environment keys use "__" between sections and keep single underscores
// inside a key name, so VECTORPROXY_QDRANT__SEARCH_LIMIT=10 sets
// qdrant.search_limit. Durations accept Go duration strings such as "2s".
//
// Example file:
//
//	logger:
//	  level: debug
//	qdrant:
//	  endpoint: qdrant.internal
//	  collection: documents
//	rabbit:
//	  connection:
//	    host: rabbitmq.internal
//	  topology:
//	    exchange_name: ingest
//	    queue_name: documents
//	    routing_key: documents.new
//	  retry:
//	    delay: 5s
package config
