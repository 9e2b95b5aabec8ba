package hsm

import (
	"sync"

	"github.com/platformseal/hsm-go/backend/credstore"
	"github.com/platformseal/hsm-go/backend/secureelement"
	"github.com/platformseal/hsm-go/backend/tpmseal"
)

// probe is the process-wide, lazily-evaluated backend detection result.
// The backend selected for a process must stay stable for its whole
// lifetime, so detection runs at most once behind a sync.Once and every
// caller thereafter reads the cached value.
type probe struct {
	once   sync.Once
	result BackendKind
}

func (p *probe) detect() BackendKind {
	p.once.Do(func() {
		switch {
		case tpmseal.Probe():
			p.result = BackendTPM
		case secureelement.Probe():
			p.result = BackendSecureElement
		case credstore.Probe():
			p.result = BackendCredentialStore
		default:
			p.result = BackendNone
		}
	})
	return p.result
}

// reset clears the cached probe result. It exists for tests that need to
// force re-detection across simulated host configurations; production
// code never calls it.
func (p *probe) reset() {
	p.once = sync.Once{}
	p.result = ""
}
