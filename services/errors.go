package services

import "errors"

// Shared sentinel errors, mapped to HTTP statuses by the handlers layer.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Not-found per entity, wrapped over the repository sentinels.
	ErrUserNotFound       = errors.New("user not found")
	ErrTeamNotFound       = errors.New("team not found")
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrMatchNotFound      = errors.New("match not found")
	ErrResultNotFound     = errors.New("match result not found")

	// Validation and business rules.
	ErrValidationFailed        = errors.New("validation failed")
	ErrTournamentNameRequired  = errors.New("tournament name is required")
	ErrTournamentInvalidFormat = errors.New("tournament format must be LEAGUE or PLAYOFF")
	ErrTournamentInvalidRounds = errors.New("rounds count must be 1 or 2")
	ErrTeamNameRequired        = errors.New("team name is required")
	ErrNotEnoughTeams          = errors.New("not enough teams (minimum 2 required)")
	ErrInvalidScore            = errors.New("scores must be non-negative integers")
	ErrInvalidPenaltyScore     = errors.New("penalty scores must be non-negative and not equal")
	ErrMatchIsBye              = errors.New("bye matches do not take results")
	ErrTeamNotInMatch          = errors.New("team does not play in this match")

	// Conflicts.
	ErrTeamAlreadyRegistered  = errors.New("participant already has a team in this tournament")
	ErrTournamentNameConflict = errors.New("tournament name already exists")
	ErrResultAlreadySubmitted = errors.New("a result has already been submitted for this match")
	ErrResultAlreadyApproved  = errors.New("the result has already been approved")

	// Lifecycle gates.
	ErrRegistrationNotOpen               = errors.New("tournament registration is not open")
	ErrTournamentNotAcceptingResults     = errors.New("tournament is not accepting results")
	ErrTournamentInvalidStatusTransition = errors.New("invalid tournament status transition")
	ErrResultNotPending                  = errors.New("the result is not awaiting approval")
	ErrPenaltyNotExpected                = errors.New("the match is not awaiting a penalty shootout")
	ErrWinnerUndetermined                = errors.New("match winner is undetermined")

	// Authentication and authorization.
	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrAuthEmailTaken         = errors.New("email is already taken")
	ErrPasswordTooShort       = errors.New("password is too short")
	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")
	ErrNotHomeParticipant     = errors.New("only the home team participant can submit a result")
)
