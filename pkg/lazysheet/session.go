package lazysheet

import (
	"errors"
	"log/slog"

	"github.com/ukaji3/lazysheet-go/pkg/lazysheet/reader"
)

// session owns the decoder handle and temp copy of one Sheets call. The
// decoder is closed exactly once, whichever path ends the session. The
// session stays registered with its Importer until the temp copy is gone.
type session struct {
	id        string
	owner     *Importer
	source    string
	decoder   reader.Decoder
	temp      *TempResource
	logger    *slog.Logger
	skipEmpty bool
	working   *SheetStream
	released  bool // no more sheets or rows may be pulled
	cleaned   bool // decoder closed and temp copy removed
}

// activate marks sh as the sheet holding the decoder cursor.
func (s *session) activate(sh *SheetStream) {
	if s.working == sh {
		return
	}
	if s.working != nil {
		s.working.working = false
	}
	s.working = sh
	sh.working = true
}

func (s *session) deactivate(sh *SheetStream) {
	sh.working = false
	if s.working == sh {
		s.working = nil
	}
}

// release closes the decoder and removes the temp file. A failed removal is
// retried on the next call; once both are done later calls are no-ops.
func (s *session) release() error {
	if s.cleaned {
		return nil
	}
	s.released = true
	if s.working != nil {
		s.deactivate(s.working)
	}

	var errs []error
	if s.decoder != nil {
		if err := s.decoder.Close(); err != nil {
			errs = append(errs, err)
		}
		s.decoder = nil
	}
	tempErr := s.temp.Release()
	if tempErr != nil {
		errs = append(errs, tempErr)
	}
	if s.owner != nil {
		if tempErr != nil {
			s.owner.retain(s)
		} else {
			s.owner.forget(s)
		}
	}
	s.cleaned = tempErr == nil

	err := errors.Join(errs...)
	if err != nil {
		s.logger.Warn("session cleanup failed", "session", s.id, "source", s.source, "error", err)
		return err
	}
	s.logger.Debug("session released", "session", s.id, "source", s.source)
	return nil
}
