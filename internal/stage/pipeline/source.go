package pipeline

import (
	"errors"

	"github.com/openmic-labs/stagecut/internal/monitoring"
	"github.com/openmic-labs/stagecut/internal/stage"
	"github.com/openmic-labs/stagecut/internal/stage/obscache"
)

// Source produces the observation stream for a video. The pose detector
// behind it is an opaque collaborator; this package only defines the
// contract.
type Source interface {
	Observations(videoPath string) ([]stage.FrameObservation, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(videoPath string) ([]stage.FrameObservation, error)

// Observations calls f.
func (f SourceFunc) Observations(videoPath string) ([]stage.FrameObservation, error) {
	return f(videoPath)
}

type cachedSource struct {
	inner       Source
	cache       *obscache.Cache
	fingerprint map[string]any
}

// CachedSource wraps a source with the observation cache: hits skip the
// inner source entirely, misses fall through and populate the cache. Cache
// write failures are logged, not surfaced; the observations are already in
// hand.
func CachedSource(inner Source, cache *obscache.Cache, fingerprint map[string]any) Source {
	return &cachedSource{inner: inner, cache: cache, fingerprint: fingerprint}
}

func (s *cachedSource) Observations(videoPath string) ([]stage.FrameObservation, error) {
	obs, err := s.cache.Load(videoPath, s.fingerprint)
	if err == nil {
		monitoring.Logf("pipeline: cache hit for %s (%d frames)", videoPath, len(obs))
		return obs, nil
	}
	if !errors.Is(err, obscache.ErrCacheMiss) {
		return nil, err
	}

	obs, err = s.inner.Observations(videoPath)
	if err != nil {
		return nil, err
	}
	if saveErr := s.cache.Save(videoPath, s.fingerprint, obs); saveErr != nil {
		monitoring.Logf("pipeline: cache save for %s failed: %v", videoPath, saveErr)
	}
	return obs, nil
}
