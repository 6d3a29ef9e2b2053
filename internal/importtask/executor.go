package importtask

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	orderdomain "github.com/qhato/taxorders/internal/order/domain"
	"github.com/qhato/taxorders/internal/taxrate"
	"github.com/qhato/taxorders/internal/importcsv"
	"github.com/qhato/taxorders/internal/importtask/domain"
	"github.com/qhato/taxorders/internal/objectstore"
	"github.com/qhato/taxorders/pkg/logger"
	"github.com/qhato/taxorders/pkg/metrics"
	"github.com/qhato/taxorders/pkg/tracing"
)

// Tunables governing batching and progress reporting for every import run.
// They equal Config.Import's defaults; NewExecutor always uses these values
// and does not read Config.Import.
const (
	ParallelImportThreshold   = 100
	ParallelImportChunks      = 5
	ImportBulkInsertBatchSize = 500
	ImportComputeBatchSize    = 1000
	ImportProgressUpdateRows  = 1000
)

var ImportProgressUpdateInterval = 2 * time.Second

// RowOutcome is the tagged result of computing a single CSV row: either a
// fully computed Order (Success) or a row number counted as a failure. A
// failed outcome carries the zero Order; callers check Success before
// reading Order.
type RowOutcome struct {
	RowNumber int
	Success   bool
	Order     orderdomain.Order
}

// Executor drives import tasks end to end: download, parse, resolve +
// compute, bulk-insert, progress reporting, resume.
type Executor struct {
	taskRepo  domain.Repository
	orderRepo orderdomain.Repository
	store     *objectstore.Store
	calc      *orderdomain.Calculator
	cache     *taxrate.CachedCatalog

	parallelThreshold      int
	parallelChunks         int
	bulkInsertBatchSize    int
	computeBatchSize       int
	progressUpdateRows     int
	progressUpdateInterval time.Duration
}

// NewExecutor builds an Executor with the fixed batching/progress constants.
func NewExecutor(taskRepo domain.Repository, orderRepo orderdomain.Repository, store *objectstore.Store,
	calc *orderdomain.Calculator, cache *taxrate.CachedCatalog) *Executor {
	return &Executor{
		taskRepo:               taskRepo,
		orderRepo:              orderRepo,
		store:                  store,
		calc:                   calc,
		cache:                  cache,
		parallelThreshold:      ParallelImportThreshold,
		parallelChunks:         ParallelImportChunks,
		bulkInsertBatchSize:    ImportBulkInsertBatchSize,
		computeBatchSize:       ImportComputeBatchSize,
		progressUpdateRows:     ImportProgressUpdateRows,
		progressUpdateInterval: ImportProgressUpdateInterval,
	}
}

// Submit pre-counts rows, uploads the file to object storage, inserts a Task
// in in_progress, and schedules a background worker. It returns as soon as
// the Task row exists; it does not wait for the import to finish.
func (e *Executor) Submit(ctx context.Context, content []byte, objectName string, userID *uuid.UUID) (*domain.Task, error) {
	totalRows := importcsv.CountRows(content)

	fileURL, err := e.store.UploadBytes(ctx, objectName, content)
	if err != nil {
		return nil, err
	}

	task := &domain.Task{
		UserID:    userID,
		FilePath:  fileURL,
		TotalRows: totalRows,
		Status:    domain.StatusInProgress,
	}
	if err := e.taskRepo.Create(ctx, task); err != nil {
		return nil, err
	}
	if metrics.Business != nil {
		metrics.Business.ImportTasksStarted.Inc()
	}

	go e.run(context.Background(), task.ID, content)

	return task, nil
}

// ResumeOnStartup re-adopts every Task still marked in_progress after a
// restart, launching one worker per task. Each Task is re-adopted exactly
// once: a task already claimed by a still-running worker in this process
// never reaches here, since ResumeOnStartup only runs at boot.
func (e *Executor) ResumeOnStartup(ctx context.Context) error {
	tasks, err := e.taskRepo.ListInProgress(ctx)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		go e.run(context.Background(), t.ID, nil)
	}
	return nil
}

// run is the worker body for one task. sourceContent, if non-nil, is used
// directly instead of re-downloading from the object store (the fast path
// right after Submit uploads it).
func (e *Executor) run(ctx context.Context, taskID uuid.UUID, sourceContent []byte) {
	task, err := e.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		tracing.RecordError(ctx, err)
		logger.WithError(err).WithField("task_id", taskID.String()).Error("import worker: task not found")
		return
	}

	successful := task.SuccessfulRows
	failed := task.FailedRows
	processedRows := task.ProcessedRows()

	// completed is set false if a bulk insert fails partway through: the task
	// stays in_progress so ResumeOnStartup retries from the last confirmed
	// offset instead of the run being silently recorded as finished.
	completed := true

	defer func() {
		if e.cache != nil {
			e.cache.Flush(context.Background())
		}
		status := domain.StatusInProgress
		if completed {
			status = domain.StatusCompleted
		}
		if err := e.taskRepo.UpdateProgress(context.Background(), taskID, successful, failed, status); err != nil {
			logger.WithError(err).WithField("task_id", taskID.String()).Warn("import worker: final progress write failed")
		}
		if completed && metrics.Business != nil {
			metrics.Business.ImportTasksFinished.Inc()
		}
	}()

	content := sourceContent
	if content == nil {
		objectName := objectstore.ExtractObjectName(e.store.Bucket(), task.FilePath)
		content, err = e.store.GetObjectBytes(ctx, objectName)
		if err != nil {
			tracing.RecordError(ctx, err)
			logger.WithError(err).WithField("task_id", taskID.String()).Error("import worker: download failed")
			return
		}
	}

	content = bytes.TrimPrefix(content, []byte{0xEF, 0xBB, 0xBF})
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		logger.WithError(err).WithField("task_id", taskID.String()).Error("import worker: empty or unreadable file")
		return
	}
	cols, err := importcsv.ResolveColumns(header)
	if err != nil {
		logger.WithError(err).WithField("task_id", taskID.String()).Error("import worker: header resolution failed")
		return
	}

	totalRemaining := task.TotalRows - processedRows
	useParallel := totalRemaining > e.parallelThreshold

	var pendingOrders []orderdomain.Order
	// pendingFailed counts failed rows not yet added to failed; they are
	// added together with the next confirmed insert so that successful+failed
	// never runs ahead of the rows actually persisted.
	pendingFailed := 0
	rowsSinceUpdate := 0
	lastUpdate := time.Now()

	// flushInserts commits the staged batch and only then counts it as
	// successful, together with the pending failed rows: a row is never
	// reported processed until BulkInsert has actually confirmed the orders
	// staged before it. It reports whether the flush succeeded; the caller
	// aborts the run on failure rather than continuing to stage more rows on
	// top of an unconfirmed batch.
	flushInserts := func() bool {
		if len(pendingOrders) == 0 {
			failed += pendingFailed
			pendingFailed = 0
			return true
		}
		if err := e.orderRepo.BulkInsert(context.Background(), pendingOrders); err != nil {
			tracing.RecordError(ctx, err)
			logger.WithError(err).WithField("task_id", taskID.String()).Error("import worker: bulk insert failed")
			return false
		}
		successful += len(pendingOrders)
		failed += pendingFailed
		pendingFailed = 0
		if metrics.Business != nil {
			metrics.Business.ImportRowsSucceeded.Add(float64(len(pendingOrders)))
			for _, o := range pendingOrders {
				metrics.Business.OrderValue.Observe(o.Subtotal.InexactFloat64())
			}
		}
		pendingOrders = pendingOrders[:0]
		return true
	}

	maybeReportProgress := func(force bool) {
		if !force {
			if rowsSinceUpdate < e.progressUpdateRows || time.Since(lastUpdate) < e.progressUpdateInterval {
				return
			}
		}
		if err := e.taskRepo.UpdateProgress(context.Background(), taskID, successful, failed, domain.StatusInProgress); err != nil {
			logger.WithError(err).WithField("task_id", taskID.String()).Warn("import worker: progress write failed")
		}
		rowsSinceUpdate = 0
		lastUpdate = time.Now()
	}

	var batch [][]string
	var batchStartRow int
	rowNumber := 0 // first data row (header already consumed) is row 1

	// flushBatch computes outcomes for the staged batch and stages each
	// success for insert, flushing as soon as the pending count crosses
	// bulkInsertBatchSize rather than waiting for the whole compute batch to
	// finish. It returns false if a bulk insert along the way failed, in
	// which case the caller must stop reading further rows.
	flushBatch := func() bool {
		if len(batch) == 0 {
			return true
		}
		outcomes := e.computeBatch(batch, cols, batchStartRow, useParallel)
		ok := true
		for _, o := range outcomes {
			if o.Success {
				o.Order.AuthorUserID = task.UserID
				pendingOrders = append(pendingOrders, o.Order)
				if len(pendingOrders) >= e.bulkInsertBatchSize {
					if !flushInserts() {
						ok = false
						break
					}
				}
			} else {
				pendingFailed++
				if metrics.Business != nil {
					metrics.Business.ImportRowsFailed.Inc()
				}
			}
			rowsSinceUpdate++
		}
		batch = batch[:0]

		maybeReportProgress(false)
		return ok
	}

	aborted := false
	for {
		rowNumber++
		record, readErr := reader.Read()
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			if rowNumber > processedRows {
				pendingFailed++
				if metrics.Business != nil {
					metrics.Business.ImportRowsFailed.Inc()
				}
				rowsSinceUpdate++
				maybeReportProgress(false)
			}
			continue
		}
		if rowNumber <= processedRows {
			continue
		}
		if len(batch) == 0 {
			batchStartRow = rowNumber
		}
		batch = append(batch, record)
		if len(batch) >= e.computeBatchSize {
			if !flushBatch() {
				aborted = true
				break
			}
		}
	}
	if !aborted && !flushBatch() {
		aborted = true
	}
	if !aborted && !flushInserts() {
		aborted = true
	}
	completed = !aborted
	maybeReportProgress(true)
}

// computeBatch computes outcomes for a batch of raw CSV records whose first
// row is startRow. When parallel is true the batch is split round-robin
// into a fixed number of chunks, computed concurrently, then re-sorted by
// row number before returning — the compute order across chunks is not
// guaranteed, but the caller-visible order always is.
func (e *Executor) computeBatch(records [][]string, cols importcsv.ColumnMap, startRow int, parallel bool) []RowOutcome {
	if !parallel {
		outcomes := make([]RowOutcome, len(records))
		for i, rec := range records {
			outcomes[i] = e.computeRow(rec, cols, startRow+i)
		}
		return outcomes
	}

	chunks := splitRoundRobin(records, startRow, e.parallelChunks)
	results := make([][]RowOutcome, len(chunks))

	var wg sync.WaitGroup
	for i, chunk := range chunks {
		wg.Add(1)
		go func(i int, chunk []indexedRecord) {
			defer wg.Done()
			out := make([]RowOutcome, len(chunk))
			for j, ir := range chunk {
				out[j] = e.computeRow(ir.record, cols, ir.rowNumber)
			}
			results[i] = out
		}(i, chunk)
	}
	wg.Wait()

	flat := make([]RowOutcome, 0, len(records))
	for _, r := range results {
		flat = append(flat, r...)
	}
	sort.Slice(flat, func(i, j int) bool { return flat[i].RowNumber < flat[j].RowNumber })
	return flat
}

type indexedRecord struct {
	rowNumber int
	record    []string
}

// splitRoundRobin distributes records into n chunks round-robin (record i
// goes to chunk i%n), matching the reference pipeline's chunking strategy so
// each chunk gets an even mix of rows rather than a contiguous slice. Row
// numbers are preserved (record i carries row number startRow+i) so the
// caller can re-sort the flattened results back into file order.
func splitRoundRobin(records [][]string, startRow, n int) [][]indexedRecord {
	chunks := make([][]indexedRecord, n)
	for i, rec := range records {
		chunkIdx := i % n
		chunks[chunkIdx] = append(chunks[chunkIdx], indexedRecord{rowNumber: startRow + i, record: rec})
	}
	return chunks
}

func (e *Executor) computeRow(record []string, cols importcsv.ColumnMap, rowNumber int) RowOutcome {
	row, err := importcsv.ParseRow(record, cols, rowNumber)
	if err != nil {
		logger.WithField("row_number", rowNumber).WithError(err).Debug("import worker: row parse failed")
		return RowOutcome{RowNumber: rowNumber, Success: false}
	}

	order, err := e.calc.Compute(orderdomain.ComputeInput{
		Latitude:  row.Latitude,
		Longitude: row.Longitude,
		Timestamp: row.Timestamp,
		Subtotal:  row.Subtotal,
	})
	if err != nil {
		logger.WithField("row_number", rowNumber).WithError(err).Debug("import worker: row compute failed")
		return RowOutcome{RowNumber: rowNumber, Success: false}
	}

	return RowOutcome{RowNumber: rowNumber, Success: true, Order: order}
}
