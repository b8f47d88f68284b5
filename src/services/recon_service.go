package services

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/username/brokerecon/backend/src/database"
	"github.com/username/brokerecon/backend/src/logger"
	"github.com/username/brokerecon/backend/src/models"
	"github.com/username/brokerecon/backend/src/parsers"
	"github.com/username/brokerecon/backend/src/parsers/brokers"
	"github.com/username/brokerecon/backend/src/parsers/clearing"
	"github.com/username/brokerecon/backend/src/recon"
	"github.com/username/brokerecon/backend/src/registry"
	"github.com/username/brokerecon/backend/src/report"
	"github.com/username/brokerecon/backend/src/security/filecrypt"
	"github.com/username/brokerecon/backend/src/ticker"
)

const ckReport = "report_%s"

type reconServiceImpl struct {
	symbols       *ticker.SymbolMap
	resultCache   *cache.Cache
	resultTTL     time.Duration
	filePasswords []string
	outputDir     string
}

func NewReconService(symbols *ticker.SymbolMap, resultCache *cache.Cache, resultTTL time.Duration, filePasswords []string, outputDir string) ReconService {
	return &reconServiceImpl{
		symbols:       symbols,
		resultCache:   resultCache,
		resultTTL:     resultTTL,
		filePasswords: filePasswords,
		outputDir:     outputDir,
	}
}

// brokerFileResult is the outcome of one broker file's classify+normalize
// pass. Files are independent, so these are produced concurrently.
// skippedType distinguishes a file that could not be read from one that was
// readable but could not be attributed to a known broker.
type brokerFileResult struct {
	name        string
	broker      registry.Broker
	trades      []models.CanonicalTrade
	rowErrors   []models.RowError
	skipped     string
	skippedType string
}

func (s *reconServiceImpl) RunReconciliation(ctx context.Context, clearingFile FileInput, brokerFiles []FileInput) (*RunResult, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger.L.Info("reconciliation START", "runID", runID,
		"clearingFile", clearingFile.Name, "brokerFileCount", len(brokerFiles))

	clearingTable, clearingTrades, err := s.readClearing(clearingFile)
	if err != nil {
		// Nothing to reconcile against; the run aborts.
		result := &RunResult{
			Error:     fmt.Sprintf("clearing file %s: %v", clearingFile.Name, err),
			ErrorType: ErrorTypeFileUnreadable,
		}
		s.persistRun(runID, "", "", clearingFile, brokerFiles, nil, result)
		result.RunID = runID
		return result, nil
	}

	results := s.normalizeBrokerFiles(ctx, brokerFiles)

	var brokerTrades []models.CanonicalTrade
	var skipped []SkippedFile
	for _, r := range results {
		if r.skipped != "" {
			logger.L.Warn("broker file skipped", "runID", runID, "file", r.name, "reason", r.skipped)
			skipped = append(skipped, SkippedFile{Name: r.name, Reason: r.skipped})
			continue
		}
		brokerTrades = append(brokerTrades, r.trades...)
	}

	label := registry.DetectAccountLabel(cpCodes(clearingTrades))
	tradeDate := firstTradeDate(clearingTrades)

	if len(brokerTrades) == 0 {
		// Distinguish files nobody could read from files that read fine but
		// matched no known broker; the UI remediates them differently.
		errType := ErrorTypeFileUnreadable
		errMsg := "no broker trades could be read from the uploaded files"
		for _, r := range results {
			if r.skippedType == ErrorTypeClassificationFailed {
				errType = ErrorTypeClassificationFailed
				errMsg = "no uploaded broker file could be attributed to a known broker"
				break
			}
		}
		result := &RunResult{
			AccountLabel: label,
			SkippedFiles: skipped,
			Error:        errMsg,
			ErrorType:    errType,
		}
		s.persistRun(runID, label, tradeDate, clearingFile, brokerFiles, nil, result)
		result.RunID = runID
		return result, nil
	}

	if err := recon.ValidateAccountCodes(clearingTrades, brokerTrades); err != nil {
		result := &RunResult{
			AccountLabel: label,
			SkippedFiles: skipped,
			Error:        err.Error(),
			ErrorType:    ErrorTypeAccountMismatch,
		}
		s.persistRun(runID, label, tradeDate, clearingFile, brokerFiles, nil, result)
		result.RunID = runID
		return result, nil
	}

	pairs, unmatchedClearing, unmatchedBroker := recon.Match(clearingTrades, brokerTrades)
	rep := report.Build(clearingTrades, brokerTrades, pairs, unmatchedClearing, unmatchedBroker)

	enhancedPath, err := s.writeEnhanced(label, tradeDate, runID, clearingTable, clearingTrades, brokerTrades, pairs)
	if err != nil {
		return nil, fmt.Errorf("writing enhanced clearing file: %w", err)
	}

	result := &RunResult{
		Success:                true,
		RunID:                  runID,
		AccountLabel:           label,
		MatchedCount:           rep.Summary.MatchedCount,
		UnmatchedClearingCount: rep.Summary.UnmatchedClearingCount,
		UnmatchedBrokerCount:   rep.Summary.UnmatchedBrokerCount,
		MatchRate:              rep.Summary.MatchRate,
		SkippedFiles:           skipped,
	}

	s.resultCache.Set(fmt.Sprintf(ckReport, runID), rep, s.resultTTL)
	s.persistRun(runID, label, tradeDate, clearingFile, brokerFiles, rep, result)
	if enhancedPath != "" {
		if _, err := database.DB.Exec("UPDATE recon_runs SET enhanced_path = ? WHERE id = ?", enhancedPath, runID); err != nil {
			logger.L.Error("failed to record enhanced path", "runID", runID, "error", err)
		}
	}

	logger.L.Info("reconciliation END", "runID", runID,
		"matched", result.MatchedCount, "matchRate", result.MatchRate,
		"duration", time.Since(start))
	return result, nil
}

// readClearing decrypts (when needed) and normalizes the clearing blotter.
func (s *reconServiceImpl) readClearing(f FileInput) (*models.RawTable, []models.CanonicalTrade, error) {
	content, err := filecrypt.Decrypt(f.Content, s.filePasswords)
	if err != nil {
		return nil, nil, err
	}
	table, err := parsers.ReadTable(bytes.NewReader(content))
	if err != nil {
		return nil, nil, err
	}
	res, err := clearing.NewNormalizer(s.symbols).Normalize(table)
	if err != nil {
		return nil, nil, err
	}
	for _, re := range res.RowErrors {
		logger.L.Warn("clearing row skipped", "row", re.Row, "reason", re.Reason)
	}
	return table, res.Trades, nil
}

// normalizeBrokerFiles runs classification and normalization for every broker
// file concurrently. Files are independent until matching, which needs the
// full concatenated set.
func (s *reconServiceImpl) normalizeBrokerFiles(ctx context.Context, files []FileInput) []brokerFileResult {
	results := make([]brokerFileResult, len(files))
	var wg sync.WaitGroup
	for i, f := range files {
		wg.Add(1)
		go func(i int, f FileInput) {
			defer wg.Done()
			results[i] = s.normalizeOne(f)
		}(i, f)
	}
	wg.Wait()
	return results
}

func (s *reconServiceImpl) normalizeOne(f FileInput) brokerFileResult {
	res := brokerFileResult{name: f.Name}

	content, err := filecrypt.Decrypt(f.Content, s.filePasswords)
	if err != nil {
		res.skipped, res.skippedType = err.Error(), ErrorTypeFileUnreadable
		return res
	}
	table, err := parsers.ReadTable(bytes.NewReader(content))
	if err != nil {
		res.skipped, res.skippedType = fmt.Sprintf("unreadable: %v", err), ErrorTypeFileUnreadable
		return res
	}
	broker, failure := parsers.Classify(f.Name, table)
	if failure != nil {
		res.skipped, res.skippedType = failure.Error(), ErrorTypeClassificationFailed
		return res
	}
	res.broker = broker

	normalizer, err := brokers.ForBroker(broker, s.symbols)
	if err != nil {
		res.skipped, res.skippedType = err.Error(), ErrorTypeClassificationFailed
		return res
	}
	parsed, err := normalizer.Normalize(table)
	if err != nil {
		res.skipped, res.skippedType = err.Error(), ErrorTypeFileUnreadable
		return res
	}
	res.trades = parsed.Trades
	res.rowErrors = parsed.RowErrors
	for _, re := range parsed.RowErrors {
		logger.L.Warn("broker row skipped", "file", f.Name, "broker", broker.ID,
			"row", re.Row, "reason", re.Reason)
	}
	return res
}

func (s *reconServiceImpl) writeEnhanced(label, tradeDate, runID string, table *models.RawTable, clearingTrades, brokerTrades []models.CanonicalTrade, pairs []models.MatchPair) (string, error) {
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return "", err
	}
	stamp := strings.ReplaceAll(tradeDate, "/", "-")
	if stamp == "" {
		stamp = time.Now().Format("20060102_150405")
	}
	path := filepath.Join(s.outputDir, fmt.Sprintf("%s_enhanced_clearing_%s_%s.csv", strings.ToLower(label), stamp, runID[:8]))

	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	if err := report.WriteEnhancedClearing(file, table, clearingTrades, brokerTrades, pairs); err != nil {
		return "", err
	}
	return path, nil
}

func (s *reconServiceImpl) persistRun(runID, label, tradeDate string, clearingFile FileInput, brokerFiles []FileInput, rep *report.Report, result *RunResult) {
	names := make([]string, len(brokerFiles))
	for i, f := range brokerFiles {
		names[i] = f.Name
	}
	var summary models.Summary
	if rep != nil {
		summary = rep.Summary
	}
	_, err := database.DB.Exec(`INSERT INTO recon_runs
		(id, account_label, trade_date, clearing_file, broker_files,
		 total_clearing, total_broker, matched_count, unmatched_clearing_count,
		 unmatched_broker_count, match_rate, total_brokerage, total_taxes,
		 error_type, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, label, tradeDate, clearingFile.Name, strings.Join(names, ";"),
		summary.TotalClearing, summary.TotalBroker, summary.MatchedCount,
		summary.UnmatchedClearingCount, summary.UnmatchedBrokerCount,
		summary.MatchRate, summary.TotalBrokerage, summary.TotalTaxes,
		nullable(result.ErrorType), nullable(result.Error))
	if err != nil {
		logger.L.Error("failed to persist run", "runID", runID, "error", err)
	}
}

func (s *reconServiceImpl) GetRun(id string) (*RunRecord, error) {
	row := database.DB.QueryRow(`SELECT id, account_label, trade_date, clearing_file, broker_files,
		total_clearing, total_broker, matched_count, unmatched_clearing_count,
		unmatched_broker_count, match_rate, total_brokerage, total_taxes,
		error_type, error_message, enhanced_path, created_at
		FROM recon_runs WHERE id = ?`, id)
	rec, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	return rec, err
}

func (s *reconServiceImpl) ListRuns(limit int) ([]RunRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := database.DB.Query(`SELECT id, account_label, trade_date, clearing_file, broker_files,
		total_clearing, total_broker, matched_count, unmatched_clearing_count,
		unmatched_broker_count, match_rate, total_brokerage, total_taxes,
		error_type, error_message, enhanced_path, created_at
		FROM recon_runs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying run history: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run history row: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (s *reconServiceImpl) GetReport(id string) (*report.Report, error) {
	if cached, found := s.resultCache.Get(fmt.Sprintf(ckReport, id)); found {
		return cached.(*report.Report), nil
	}
	if _, err := s.GetRun(id); err != nil {
		return nil, err
	}
	return nil, ErrReportExpired
}

func (s *reconServiceImpl) EnhancedPath(id string) (string, error) {
	rec, err := s.GetRun(id)
	if err != nil {
		return "", err
	}
	if rec.EnhancedPath == "" {
		return "", ErrRunNotFound
	}
	return rec.EnhancedPath, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*RunRecord, error) {
	var rec RunRecord
	var errType, errMsg, enhanced, tradeDate sql.NullString
	err := row.Scan(&rec.ID, &rec.AccountLabel, &tradeDate, &rec.ClearingFile, &rec.BrokerFiles,
		&rec.TotalClearing, &rec.TotalBroker, &rec.MatchedCount, &rec.UnmatchedClearingCount,
		&rec.UnmatchedBrokerCount, &rec.MatchRate, &rec.TotalBrokerage, &rec.TotalTaxes,
		&errType, &errMsg, &enhanced, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	rec.TradeDate = tradeDate.String
	rec.ErrorType = errType.String
	rec.ErrorMessage = errMsg.String
	rec.EnhancedPath = enhanced.String
	return &rec, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func cpCodes(trades []models.CanonicalTrade) []string {
	out := make([]string, 0, len(trades))
	for i := range trades {
		out = append(out, trades[i].CPCode)
	}
	return out
}

func firstTradeDate(trades []models.CanonicalTrade) string {
	for i := range trades {
		if trades[i].TradeDate != "" {
			return trades[i].TradeDate
		}
	}
	return ""
}
