package validate

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/open-edge-platform/firmware-packager/internal/artifact"
	"github.com/open-edge-platform/firmware-packager/internal/packager"
	"github.com/open-edge-platform/firmware-packager/internal/utils/logger"
)

// ProgramResult holds the outcome of verifying one program package.
type ProgramResult struct {
	ID       string
	OK       bool
	Duration time.Duration
	Error    error
}

// VerifyPrograms re-checks every program's source digest in parallel with a
// progress bar, for interactive use. The validator's program check covers
// the same ground inside the report; this exists so large program sets give
// feedback while a validation run is in flight.
func VerifyPrograms(manifest *artifact.Manifest, ar *packager.Archive, workers int) []ProgramResult {
	log := logger.Logger()

	refs := manifest.Contents.Programs
	total := len(refs)
	if total == 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	log.Debugf("verifying %d programs with %d workers", total, workers)

	results := make([]ProgramResult, total)
	jobs := make(chan int, total)
	var wg sync.WaitGroup

	bar := progressbar.NewOptions(total,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowDescriptionAtLineEnd(),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(200*time.Millisecond),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				ref := refs[idx]
				bar.Describe("verifying " + ref.ID)

				start := time.Now()
				err := verifyProgramDigest(ref, ar)
				results[idx] = ProgramResult{
					ID:       ref.ID,
					OK:       err == nil,
					Duration: time.Since(start),
					Error:    err,
				}
				if err != nil {
					log.Errorf("program %s verification failed: %v", ref.ID, err)
				}
				if err := bar.Add(1); err != nil {
					log.Debugf("progress bar: %v", err)
				}
			}
		}()
	}

	for i := range refs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if err := bar.Finish(); err != nil {
		log.Debugf("progress bar: %v", err)
	}
	return results
}

func verifyProgramDigest(ref artifact.ProgramRef, ar *packager.Archive) error {
	data, ok := ar.Member(ref.Path)
	if !ok {
		return fmt.Errorf("archive is missing %s", ref.Path)
	}
	if actual := artifact.SHA256Hex(data); actual != ref.Checksum {
		return fmt.Errorf("metadata digest %s does not match recorded digest %s", actual, ref.Checksum)
	}

	var prog artifact.Program
	if err := json.Unmarshal(data, &prog); err != nil {
		return fmt.Errorf("parsing program metadata: %w", err)
	}
	if actual := artifact.SHA256Hex([]byte(prog.Source)); actual != prog.SourceChecksum {
		return fmt.Errorf("source digest %s does not match declared digest %s", actual, prog.SourceChecksum)
	}
	return nil
}
