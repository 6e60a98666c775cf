package checks

import (
	"context"
	"os"
	"time"

	"github.com/growcoach/jobboard/internal/monitoring"
)

// UploadDir verifies the upload root exists and accepts new files.
func UploadDir(root string) monitoring.Check {
	return monitoring.NewCheck("uploads", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		info, err := os.Stat(root)
		if err != nil {
			return monitoring.ResultFromError("uploads", err, time.Since(start))
		}
		if !info.IsDir() {
			return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: root + " is not a directory"}
		}

		probe, err := os.CreateTemp(root, ".probe-*")
		if err != nil {
			return monitoring.ResultFromError("uploads", err, time.Since(start))
		}
		name := probe.Name()
		_ = probe.Close()
		_ = os.Remove(name)

		return monitoring.ProbeResult{Status: monitoring.StatusUp, Duration: time.Since(start)}
	})
}
