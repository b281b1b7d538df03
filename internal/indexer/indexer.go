package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/korenlab/lexkb/internal/chunker"
	"github.com/korenlab/lexkb/internal/extract"
	"github.com/korenlab/lexkb/internal/identity"
	"github.com/korenlab/lexkb/internal/lexical"
	"github.com/korenlab/lexkb/internal/storage"
	"github.com/korenlab/lexkb/pkg/types"
)

// titleWords is how many leading words form a chunk's title label.
const titleWords = 12

// Config contains configuration for the indexer.
type Config struct {
	Chunk          chunker.Config
	LexMaxTokens   int
	FileTimeout    time.Duration // per-file extraction deadline
	HeavyThreshold time.Duration // extraction time that flags a heavy file
	StatusInterval time.Duration // minimum delay between progress writes
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Chunk:          chunker.DefaultConfig(),
		LexMaxTokens:   lexical.DefaultMaxLexTokens,
		FileTimeout:    extract.DefaultTimeout,
		HeavyThreshold: 5 * time.Second,
		StatusInterval: 500 * time.Millisecond,
	}
}

// HeavyFile flags a document whose extraction ran long. Reported for
// operator visibility, never a failure by itself.
type HeavyFile struct {
	File   string  `json:"file"`
	Sec    float64 `json:"sec"`
	SizeKB float64 `json:"size_kb,omitempty"`
	Status string  `json:"status,omitempty"`
}

// IndexProgress is the reindex job's progress payload.
type IndexProgress struct {
	Phase            string      `json:"phase"`
	TotalFiles       int         `json:"total_files"`
	ProcessedFiles   int         `json:"processed_files"`
	DocsIndexed      int         `json:"docs_indexed"`
	DocsReused       int         `json:"docs_reused"`
	DocsSkippedEmpty int         `json:"docs_skipped_empty"`
	DocsFailed       int         `json:"docs_failed"`
	ChunksWritten    int         `json:"chunks_written"`
	CurrentFile      string      `json:"current_file,omitempty"`
	HeavyFiles       []HeavyFile `json:"heavy_files,omitempty"`
	Output           string      `json:"output,omitempty"`
}

// Indexer coordinates the corpus-building jobs against one index
// directory.
type Indexer struct {
	dir      storage.Dir
	registry *extract.Registry
	res      lexical.Resources
	cfg      Config
}

// New creates an Indexer.
func New(dir storage.Dir, registry *extract.Registry, res lexical.Resources, cfg Config) *Indexer {
	return &Indexer{dir: dir, registry: registry, res: res, cfg: cfg}
}

// Reindex rebuilds the chunk stream from sourceRoot. Per-file failures
// and empty documents are counted and skipped; only an unwritable
// destination fails the job. The returned progress is the final state
// also persisted to the status artifact.
func (ix *Indexer) Reindex(ctx context.Context, sourceRoot string) (IndexProgress, error) {
	started := time.Now()
	sm := NewStatusManager[IndexProgress](ix.dir.IndexStatusPath())

	files, err := ix.enumerate(sourceRoot)
	if err != nil {
		_ = sm.Fail(fmt.Sprintf("enumerate source files: %v", err))
		return IndexProgress{}, fmt.Errorf("enumerate source files: %w", err)
	}

	prog := IndexProgress{
		Phase:      "index",
		TotalFiles: len(files),
		Output:     ix.dir.ChunksPath(),
	}
	if err := sm.Start("Indexing started", prog); err != nil {
		return prog, err
	}

	prior := ix.loadPrior()

	writer, err := storage.NewChunkWriter(ix.dir.ChunksPath())
	if err != nil {
		_ = sm.Fail(fmt.Sprintf("Fatal error: %v", err))
		return prog, err
	}

	lastUpdate := time.Now()
	for i, file := range files {
		fileStart := time.Now()
		prog.CurrentFile = file.rel

		if time.Since(lastUpdate) >= ix.cfg.StatusInterval {
			prog.ProcessedFiles = i
			_ = sm.Update(
				fmt.Sprintf("Processing %d/%d: %s", i+1, len(files), file.rel),
				prog, eta(started, i, len(files)))
			lastUpdate = time.Now()
		}

		stableID, legacyID := identity.FromFileInfo(file.rel, file.info)

		reusable := prior[stableID]
		if reusable == nil {
			reusable = prior[legacyID]
		}
		if reusable != nil {
			for _, rec := range reusable {
				rec.DocID = stableID
				rec.ChunkID = types.MakeChunkID(stableID, rec.LocalIndex)
				rec.SourcePath = file.rel
				rec.FolderTag = folderTag(file.rel)
				rec.ChunkIndex = writer.Count()
				if err := writer.Write(rec); err != nil {
					return ix.fatal(sm, writer, prog, err)
				}
			}
			prog.ChunksWritten = writer.Count()
			prog.DocsIndexed++
			prog.DocsReused++
			continue
		}

		text, err := ix.registry.Extract(ctx, file.abs, ix.cfg.FileTimeout)
		if err != nil {
			prog.DocsFailed++
			if errors.Is(err, extract.ErrTimeout) {
				log.Printf("[index] timeout, skipping %s", file.rel)
				prog.HeavyFiles = append(prog.HeavyFiles, HeavyFile{
					File:   file.rel,
					Sec:    ix.cfg.FileTimeout.Seconds(),
					Status: "TIMEOUT",
				})
			} else {
				log.Printf("[index] failed %s: %v", file.rel, err)
			}
			continue
		}

		if d := time.Since(fileStart); d > ix.cfg.HeavyThreshold {
			prog.HeavyFiles = append(prog.HeavyFiles, HeavyFile{
				File:   file.rel,
				Sec:    round3(d.Seconds()),
				SizeKB: float64(file.info.Size()) / 1024,
			})
		}

		text = strings.TrimSpace(chunker.CleanText(text))
		if text == "" {
			prog.DocsSkippedEmpty++
			continue
		}

		prog.DocsIndexed++
		localIndex := 0
		for _, piece := range chunker.ChunkForEmbedding(text, ix.cfg.Chunk) {
			piece = strings.TrimSpace(piece)
			if piece == "" {
				continue
			}
			rec := types.ChunkRecord{
				ChunkID:    types.MakeChunkID(stableID, localIndex),
				DocID:      stableID,
				SourcePath: file.rel,
				FolderTag:  folderTag(file.rel),
				ChunkIndex: writer.Count(),
				LocalIndex: localIndex,
				Title:      deriveTitle(piece),
				Text:       piece,
				LexTokens:  lexical.LexTokens(piece, ix.res, ix.cfg.LexMaxTokens),
			}
			if err := writer.Write(rec); err != nil {
				return ix.fatal(sm, writer, prog, err)
			}
			localIndex++
		}
		prog.ChunksWritten = writer.Count()
	}

	if err := writer.Close(); err != nil {
		_ = sm.Fail(fmt.Sprintf("Fatal error: %v", err))
		return prog, err
	}

	prog.ProcessedFiles = len(files)
	prog.CurrentFile = ""
	if err := sm.Complete("Indexing completed", prog); err != nil {
		return prog, err
	}
	return prog, nil
}

type sourceFile struct {
	abs  string
	rel  string
	info fs.FileInfo
}

// enumerate walks sourceRoot collecting supported files in walk order.
func (ix *Indexer) enumerate(sourceRoot string) ([]sourceFile, error) {
	var files []sourceFile
	err := filepath.WalkDir(sourceRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !ix.registry.Supports(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(sourceRoot, path)
		if err != nil {
			return err
		}
		files = append(files, sourceFile{
			abs:  path,
			rel:  filepath.ToSlash(rel),
			info: info,
		})
		return nil
	})
	return files, err
}

// loadPrior backs up the existing chunk stream and loads it keyed by
// doc_id. Any failure degrades to a full rebuild, never an error.
func (ix *Indexer) loadPrior() map[string][]types.ChunkRecord {
	if err := storage.BackupChunks(ix.dir); err != nil {
		if !errors.Is(err, storage.ErrArtifactMissing) {
			log.Printf("[index] backup failed: %v", err)
		}
		return nil
	}
	records, err := storage.ReadChunks(ix.dir.ChunksBackupPath())
	if err != nil {
		log.Printf("[index] prior stream unreadable: %v", err)
		return nil
	}
	prior := make(map[string][]types.ChunkRecord)
	for _, rec := range records {
		if rec.DocID == "" {
			continue
		}
		prior[rec.DocID] = append(prior[rec.DocID], rec)
	}
	return prior
}

func (ix *Indexer) fatal(sm *StatusManager[IndexProgress], writer *storage.ChunkWriter, prog IndexProgress, err error) (IndexProgress, error) {
	_ = writer.Close()
	_ = sm.Fail(fmt.Sprintf("Fatal error: %v", err))
	return prog, err
}

// folderTag is the top-level directory of a relative path, "root" for
// files directly under the source root.
func folderTag(relPath string) string {
	if i := strings.IndexByte(relPath, '/'); i >= 0 {
		return relPath[:i]
	}
	return "root"
}

func deriveTitle(text string) string {
	words := strings.Fields(text)
	if len(words) > titleWords {
		words = words[:titleWords]
	}
	return strings.Join(words, " ")
}

// eta estimates remaining seconds from the current rate; -1 if unknown.
func eta(started time.Time, done, total int) float64 {
	if done <= 0 || total <= done {
		return -1
	}
	elapsed := time.Since(started).Seconds()
	rate := float64(done) / elapsed
	if rate <= 0 {
		return -1
	}
	return float64(total-done) / rate
}
