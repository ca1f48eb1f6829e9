package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spektr-org/kpideck/dashboard"
	"github.com/spektr-org/kpideck/engine"
	"github.com/spektr-org/kpideck/schema"
	"github.com/spektr-org/kpideck/source"
)

var docs = map[string][]byte{
	"configs/acme.json": []byte(`{
	  "clientId": "acme", "name": "Acme Health Partners", "shortName": "Acme",
	  "dataSources": {"chargeByPostDate": "charges.csv", "paymentsByPostDate": "payments.csv", "denials": "denials.csv", "openAR": "open_ar.csv"},
	  "kpis": [
	    {"key": "claims", "label": "Claims", "formulaKey": "countClaims"},
	    {"key": "gcr", "label": "Gross Collection Rate", "formulaKey": "grossCollectionRate"}
	  ],
	  "layout": {"sections": ["kpiCards", "chargesByMonth", "arAging"]}
	}`),
	"data/acme/charges.csv":  []byte("claim_id,charge_amount,post_date\n1,100,2026-01-05\n2,100,2026-01-20\n3,100,2026-02-03\n"),
	"data/acme/payments.csv": []byte("claim_id,payment_amount,post_date\n1,90,2026-02-01\n3,95,2026-02-10\n"),
	"data/acme/denials.csv":  []byte("claim_id,denial_reason\n2,CO-45\n"),
}

func testService() *dashboard.Service {
	return dashboard.NewService(source.FetcherFunc(func(_ context.Context, name string) ([]byte, error) {
		if doc, ok := docs[name]; ok {
			return doc, nil
		}
		return nil, fmt.Errorf("%s: %w", name, source.ErrNotFound)
	}))
}

func loadAcme(t *testing.T) *engine.Bundle {
	t.Helper()
	b, err := testService().Load(context.Background(), "acme")
	require.NoError(t, err)
	return b
}

func TestWriteBundleTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeBundleTable(&buf, loadAcme(t), "$"))
	out := buf.String()

	assert.Contains(t, out, "Acme Health Partners  (Jan-2026 – Feb-2026)")
	assert.Contains(t, out, "missing source: openAR")
	assert.Contains(t, out, "Gross Collection Rate")
	assert.Contains(t, out, "61.7%")
	assert.Contains(t, out, "Charges by Month")
	assert.Contains(t, out, "$200.00")
	assert.Contains(t, out, "A/R Aging\n  No data")
}

func TestWriteBundleCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeBundleCSV(&buf, loadAcme(t), "€"))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")

	assert.Equal(t, "KPI,Value,Change", lines[0])
	assert.Equal(t, "Claims,3,N/A", lines[1])
	assert.Contains(t, lines, "Charges by Month,Amount,Rows")
	assert.Contains(t, lines, "Jan-2026,€200.00,2")
	assert.Contains(t, lines, "A/R Aging,Amount,Rows")
}

func TestSymbolFor(t *testing.T) {
	assert.Equal(t, "$", symbolFor(&engine.Bundle{Config: &schema.ClientConfig{}}, "$"))
	assert.Equal(t, "£", symbolFor(&engine.Bundle{Config: &schema.ClientConfig{Currency: "£"}}, "$"))
	assert.Equal(t, "$", symbolFor(nil, "$"))
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeYAML(&buf, &schema.ClientConfig{ClientID: "acme", Name: "Acme"}))
	assert.Contains(t, buf.String(), "clientId: acme")
}

func TestWriteClientsTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeClientsTable(&buf, []schema.ClientSummary{{ID: "acme", Name: "Acme Health Partners", ShortName: "Acme"}}))
	assert.Contains(t, buf.String(), "acme")
	assert.Contains(t, buf.String(), "Acme Health Partners")
}

func TestBrowse(t *testing.T) {
	nav := dashboard.NewNavigator(testService(), zap.NewNop())
	defer nav.Close()

	var buf bytes.Buffer
	err := browse(context.Background(), nav, strings.NewReader("\nacme\nquit\nnobody\n"), &buf, "$")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Acme Health Partners")
	assert.NotContains(t, buf.String(), "Error")
	assert.Equal(t, "acme", nav.Current().Config.ClientID)
}

func TestBrowseReportsErrors(t *testing.T) {
	nav := dashboard.NewNavigator(testService(), zap.NewNop())
	defer nav.Close()

	var buf bytes.Buffer
	require.NoError(t, browse(context.Background(), nav, strings.NewReader("nobody\n"), &buf, "$"))
	assert.Contains(t, buf.String(), "Error: [CONFIG_NOT_FOUND]")
	assert.Nil(t, nav.Current())
}

// slowLoader stands in for the service with a short, cancelable load.
type slowLoader struct{}

func (slowLoader) Load(ctx context.Context, clientID string) (*engine.Bundle, error) {
	select {
	case <-time.After(2 * time.Millisecond):
		return &engine.Bundle{LoadID: clientID, Config: &schema.ClientConfig{ClientID: clientID, Name: clientID}}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestBrowseLastLineWins(t *testing.T) {
	for i := 0; i < 50; i++ {
		nav := dashboard.NewNavigator(slowLoader{}, zap.NewNop())

		var buf bytes.Buffer
		require.NoError(t, browse(context.Background(), nav, strings.NewReader("first\nsecond\n"), &buf, "$"))
		nav.Close()

		require.NotNil(t, nav.Current())
		assert.Equal(t, "second", nav.Current().LoadID, "run %d", i)
		assert.NotContains(t, buf.String(), "first", "run %d", i)
	}
}
