// Package blurhasher computes blurhash placeholders for uploaded image files
// and stores them on the file record.
//
// It exposes a single Service that reacts to file lifecycle events. For each
// eligible file it fetches a small rendition through an AssetService, decodes
// it to RGBA pixels, encodes a 4x4 blurhash and writes it back through a
// FileService. Schema bootstrap makes sure the blurhash field exists before
// any file is processed.
//
// Collaborators are narrow interfaces so the pipeline can run against a host
// platform, a Postgres database, or the in-memory implementations provided
// under subpackages.
//
// Failure Policy
//
// Hash computation is best-effort enrichment. Event handlers registered with
// Register never return errors to the dispatcher; every failure ends up as a
// log entry and the file is retried only when a later event re-evaluates it.
package blurhasher
