package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/brokerecon/backend/src/database"
	"github.com/username/brokerecon/backend/src/logger"
	"github.com/username/brokerecon/backend/src/ticker"
)

func newTestService(t *testing.T) ReconService {
	t.Helper()
	logger.InitLogger("error")
	database.InitDB(filepath.Join(t.TempDir(), "test.db"))
	return NewReconService(ticker.EmptySymbolMap(), cache.New(time.Hour, time.Hour), time.Hour, nil, t.TempDir())
}

func clearingFixture() FileInput {
	return FileInput{
		Name: "clearing.csv",
		Content: []byte("CP Code,TM Code,B/S,Qty,Avg Price,Symbol,Expiry Dt,Strike Price,Instr,Option Type\n" +
			"ECASL0000094,7730,B,100,150.50,NIFTY,26/10/2023,19500,OPTIDX,CE\n"),
	}
}

func TestRunReconciliationSuccess(t *testing.T) {
	svc := newTestService(t)

	brokerFile := FileInput{
		Name: "icici_trades.csv",
		Content: []byte("CP Code,Broker Code,Scrip Code,Segment Type,Expiry,Strike Price,Call / Put,Buy / Sell,Qty,Mkt. Rate,Pure Brokerage AMT,Total Taxes,Trade Date\n" +
			"ECASL0000094,7730,NIFTY,Index Options,26/10/2023,19500,CALL,B,100,150.50,20,5,20/10/2023\n"),
	}

	result, err := svc.RunReconciliation(context.Background(), clearingFixture(), []FileInput{brokerFile})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.MatchedCount)
	assert.Equal(t, 100.0, result.MatchRate)
	assert.Equal(t, "AURIGIN", result.AccountLabel)
	assert.Empty(t, result.SkippedFiles)

	rec, err := svc.GetRun(result.RunID)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.MatchedCount)
	assert.NotEmpty(t, rec.EnhancedPath)

	rep, err := svc.GetReport(result.RunID)
	require.NoError(t, err)
	assert.Len(t, rep.Matched, 1)
}

func TestRunReconciliationUnreadableClearingFile(t *testing.T) {
	svc := newTestService(t)

	result, err := svc.RunReconciliation(context.Background(),
		FileInput{Name: "clearing.csv", Content: []byte("\n\n")}, nil)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, ErrorTypeFileUnreadable, result.ErrorType)
}

func TestRunReconciliationClassificationFailed(t *testing.T) {
	svc := newTestService(t)

	// One file is not even tabular, one reads fine but matches no known
	// broker; the readable file decides the taxon.
	brokerFiles := []FileInput{
		{Name: "garbage.csv", Content: []byte("\n\n")},
		{Name: "mystery.csv", Content: []byte("Foo,Bar\n1,2\n")},
	}

	result, err := svc.RunReconciliation(context.Background(), clearingFixture(), brokerFiles)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, ErrorTypeClassificationFailed, result.ErrorType)
	assert.Len(t, result.SkippedFiles, 2)
}

func TestRunReconciliationAllBrokerFilesUnreadable(t *testing.T) {
	svc := newTestService(t)

	result, err := svc.RunReconciliation(context.Background(), clearingFixture(),
		[]FileInput{{Name: "garbage.csv", Content: []byte("\n\n")}})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, ErrorTypeFileUnreadable, result.ErrorType)
}
