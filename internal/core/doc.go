// Package core provides the business logic for flat-text ingestion.
//
// This package contains all domain logic independent of any transport
// layer. It can be used by the HTTP handlers, the CLI, or tests without
// modification.
//
// # Architecture
//
// The package is organized around a few key concepts:
//
//   - Line sources: memory-efficient streaming input with BOM skipping,
//     UTF-8 sanitization, transparent lz4 decompression, and byte
//     counting for progress reporting.
//   - Service: the main entry point. It runs asynchronous ingests that
//     feed lines through a row mapper (internal/flattext) configured by
//     a format profile (internal/profile).
//   - Record sinks: where completed records go. The HTTP server uses a
//     PostgreSQL sink (internal/storage); the CLI uses the NDJSON sink.
//
// # Ingest flow
//
//  1. Client calls [Service.StartIngest] with an io.Reader
//  2. The reader is wrapped in a [LineSource]
//  3. A fresh row mapper is built for the stream and fed line by line
//  4. Records stream to the sink; failed lines are collected and the
//     stream continues
//  5. Progress is broadcast to subscribers via [Service.SubscribeProgress]
//
// # Error handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - PRS001-PRS003: parse errors (rows, field names, configuration)
//   - PRF001: profile errors
//   - FILE001-FILE003: file errors (size, empty, line length)
//   - ING001-ING004: ingest lifecycle errors (cancelled, busy, expired)
//   - DB001-DB002: record store errors
package core
