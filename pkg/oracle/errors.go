package oracle

import "errors"

// Every error below fails the whole transition synchronously: no partial
// state survives and nothing is retried. Module errors are propagated to
// the caller verbatim, wrapped only with the failing stage.
var (
	ErrInvalidRequestId                = errors.New("invalid request id")
	ErrInvalidResponseId               = errors.New("invalid response id")
	ErrInvalidDisputeId                = errors.New("invalid dispute id")
	ErrAlreadyFinalized                = errors.New("request already finalized")
	ErrResponseAlreadyDisputed         = errors.New("response already disputed")
	ErrCannotDeleteWhileDisputing      = errors.New("cannot delete response while disputing")
	ErrCannotDeleteInvalidProposer     = errors.New("only the proposer may delete the response")
	ErrNotDisputeModule                = errors.New("caller is not the request's dispute module")
	ErrNotResolutionModule             = errors.New("caller is not the request's resolution module")
	ErrCannotEscalate                  = errors.New("dispute cannot be escalated")
	ErrCannotResolve                   = errors.New("dispute cannot be resolved")
	ErrNoResolutionModule              = errors.New("no resolution module configured")
	ErrCannotFinalizeWithActiveDispute = errors.New("cannot finalize with an unresolved dispute")
	ErrInvalidFinalizedResponse        = errors.New("response cannot be finalized")
	ErrModuleNotRegistered             = errors.New("module not registered")
)
