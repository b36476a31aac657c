// Package core provides the business logic for dataset CSV imports.
//
// This package contains the ingestion pipeline independent of any UI or
// transport layer. It can be used by web handlers, the CLI, or tests without
// modification.
//
// # Pipeline
//
// Raw CSV text flows through the following stages:
//
//  1. [Parse] turns text into a rectangular [ParsedTable]
//  2. [ProfileColumns] infers a [ColumnType] per column from sampled values
//  3. [AutoDetect] suggests a [ColumnMapping] from column names
//  4. [Chunk] splits oversized content into header-carrying CSV documents
//  5. [Importer] uploads the chunks sequentially through a [Transport]
//
// A nil table from [Parse] means there is nothing to import. Callers must
// branch on it and tell the user instead of importing zero rows.
//
// # Partial Failure
//
// Each chunk is retried with exponential backoff via [RetryWithBackoff].
// A chunk that still fails is recorded in [ImportProgress.FailedChunks] and
// the import moves on to the next chunk. [Importer.Import] only returns an
// error for problems found before the first upload (bad mapping, empty
// content); everything else is reported in the [BulkImportResult].
//
// # Presets
//
// A [MappingPreset] saves a [ColumnMapping] with the headers it was made
// for. [MatchPresets] suggests presets for a new file by header overlap.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - CSV001-CSV004: Parsing and file errors
//   - MAP001-MAP003: Column mapping errors
//   - IMP001-IMP007: Import and session errors
//   - NET001-NET004: Backend transport errors
//   - PRE001-PRE003: Mapping preset errors
//   - SET001, REQ001, RATE001: Preferences, malformed requests, rate limits
package core
