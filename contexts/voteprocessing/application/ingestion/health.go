package ingestion

import (
	"context"

	"votepipeline/contexts/voteprocessing/domain/entities"
	"votepipeline/contexts/voteprocessing/ports"
)

// HealthStatus reports the two external dependencies ingestion relies on.
// CredentialsReachable comes from a membership probe against the
// credential store; BusReachable only reports whether a bus is configured,
// the bus connection itself is not probed.
type HealthStatus struct {
	BusReachable         bool
	CredentialsReachable bool
}

// HealthUseCase answers GET /health. It probes the credential store with a
// side-effect-free membership test and makes no call to the bus.
type HealthUseCase struct {
	Bus         ports.MessageBus
	Credentials ports.CredentialStore
}

func (uc HealthUseCase) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{}
	if uc.Credentials != nil {
		if _, err := uc.Credentials.IsValid(ctx, probeFingerprint()); err == nil {
			status.CredentialsReachable = true
		}
	}
	status.BusReachable = uc.Bus != nil
	return status
}

func probeFingerprint() entities.Fingerprint {
	return entities.ComputeFingerprint("000000000", "HEALTHY", "health-probe")
}
