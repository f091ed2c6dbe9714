// Package certificate reports days until a PEM certificate expires.
package certificate

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"time"

	"github.com/jandubois/clusterwatch/internal/probe"
)

// Probe reads certificates from the local filesystem.
type Probe struct {
	now func() time.Time
}

// New creates a certificate probe.
func New() *Probe {
	return &Probe{now: time.Now}
}

// Execute parses the first CERTIFICATE block in spec.Target and returns the
// number of days until NotAfter. Expired certificates yield negative values.
func (p *Probe) Execute(ctx context.Context, spec probe.Spec) probe.Outcome {
	if spec.Target == "" {
		return probe.NotApplicable("certificate path is empty")
	}
	data, err := os.ReadFile(spec.Target)
	if errors.Is(err, fs.ErrNotExist) {
		return probe.NotApplicable(fmt.Sprintf("%s does not exist", spec.Target))
	}
	if err != nil {
		return probe.Unreachable(fmt.Errorf("read certificate: %w", err))
	}

	cert, err := parse(data)
	if err != nil {
		return probe.Unreachable(fmt.Errorf("parse %s: %w", spec.Target, err))
	}
	days := cert.NotAfter.Sub(p.now()).Hours() / 24
	return probe.Success(probe.Number(math.Floor(days*10) / 10))
}

func parse(data []byte) (*x509.Certificate, error) {
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			return nil, errors.New("no CERTIFICATE block found")
		}
		if block.Type == "CERTIFICATE" {
			return x509.ParseCertificate(block.Bytes)
		}
	}
}

// Descriptions returns the certificate probe kinds.
func Descriptions() []probe.Description {
	return []probe.Description{
		{
			Domain:      probe.DomainCertificate,
			Kind:        "expiry",
			Description: "Days until a PEM certificate expires (TLS for SIP, RADIUS or the web UI)",
			Arguments: probe.Arguments{
				Required: map[string]probe.ArgumentSpec{
					"target": {Type: "string", Description: "Path to the PEM file"},
				},
				Optional: map[string]probe.ArgumentSpec{
					"thresholds.warn":     {Type: "number", Description: "Warn when days left <= this", Default: 30},
					"thresholds.critical": {Type: "number", Description: "Critical when days left <= this", Default: 7},
				},
			},
		},
	}
}
