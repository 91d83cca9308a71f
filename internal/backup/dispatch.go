package backup

import (
	"context"
	"fmt"
)

// Dispatch routes an invocation event to Export or Import. The exported
// bundle is not returned to the caller.
func (s *Service) Dispatch(ctx context.Context, req Request) error {
	log := s.log.With("function", req.Function)

	switch req.Function {
	case FunctionExport:
		if req.SrcIndex == "" {
			return fmt.Errorf("%w: srcIndex", ErrMissingParameter)
		}
		_, err := s.Export(ctx, req.SrcIndex)
		return err
	case FunctionImport:
		if req.TargetIndex == "" {
			return fmt.Errorf("%w: targetIndex", ErrMissingParameter)
		}
		if req.SrcPath == "" {
			return fmt.Errorf("%w: srcPath", ErrMissingParameter)
		}
		_, err := s.Import(ctx, req.TargetIndex, req.SrcPath)
		return err
	default:
		log.Errorf("unknown function %q", req.Function)
		return fmt.Errorf("%w: %q", ErrUnknownFunction, req.Function)
	}
}
