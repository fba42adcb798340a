package cbr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Client fetches the Central Bank of Russia key rate used to price variable-rate debts
type Client struct {
	url       string
	marginBps int64
	client    *http.Client
	log       *logrus.Logger
	now       func() time.Time
}

// NewClient initializes a new CBR client
func NewClient(url string, marginBps int64, log *logrus.Logger) *Client {
	return &Client{
		url:       url,
		marginBps: marginBps,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
		now: time.Now,
	}
}

// buildSOAPRequest creates a SOAP request for key rate
func (c *Client) buildSOAPRequest() string {
	now := c.now()
	fromDate := now.AddDate(0, 0, -30).Format("2006-01-02")
	toDate := now.Format("2006-01-02")
	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
		<soap12:Envelope xmlns:soap12="http://www.w3.org/2003/05/soap-envelope">
			<soap12:Body>
				<KeyRate xmlns="http://web.cbr.ru/">
					<fromDate>%s</fromDate>
					<ToDate>%s</ToDate>
				</KeyRate>
			</soap12:Body>
		</soap12:Envelope>`, fromDate, toDate)
}

// sendRequest sends SOAP request to CBR
func (c *Client) sendRequest(ctx context.Context, soapRequest string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBufferString(soapRequest))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/soap+xml; charset=utf-8")
	req.Header.Set("SOAPAction", "http://web.cbr.ru/KeyRate")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debugf("CBR XML response: %s", string(body))
	return body, nil
}

// parseXMLResponse extracts the latest key rate, in percent
func parseXMLResponse(rawBody []byte) (decimal.Decimal, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(rawBody); err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse XML: %w", err)
	}

	krElements := doc.FindElements("//diffgram/KeyRate/KR")
	if len(krElements) == 0 {
		return decimal.Zero, fmt.Errorf("no key rate data found in XML")
	}

	// newest first
	rateElement := krElements[0].FindElement("./Rate")
	if rateElement == nil {
		return decimal.Zero, fmt.Errorf("rate element not found in XML")
	}

	rate, err := decimal.NewFromString(strings.TrimSpace(rateElement.Text()))
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse rate: %w", err)
	}
	return rate, nil
}

// GetKeyRate retrieves the current key rate in percent, without margin
func (c *Client) GetKeyRate(ctx context.Context) (decimal.Decimal, error) {
	body, err := c.sendRequest(ctx, c.buildSOAPRequest())
	if err != nil {
		return decimal.Zero, err
	}
	rate, err := parseXMLResponse(body)
	if err != nil {
		return decimal.Zero, err
	}
	c.log.Infof("Retrieved key rate: %s%%", rate.String())
	return rate, nil
}

// VariableAPRBps is the key rate plus the configured margin, in basis points.
// extraMarginBps is added on top for a single debt.
func (c *Client) VariableAPRBps(ctx context.Context, extraMarginBps int) (int, error) {
	rate, err := c.GetKeyRate(ctx)
	if err != nil {
		return 0, err
	}
	return AddMargin(rate, c.marginBps+int64(extraMarginBps)), nil
}

// AddMargin converts a percent rate to basis points and adds marginBps
func AddMargin(ratePercent decimal.Decimal, marginBps int64) int {
	bps := ratePercent.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	return int(bps + marginBps)
}
