package domain

const (
	EventNameQuizCreated      = "quiz.created"
	EventNameResultCreated    = "result.created"
	EventNameStandingsUpdated = "standings.updated"
)

type EventQuizCreated struct {
	Quiz Quiz
}

func (EventQuizCreated) Name() string { return EventNameQuizCreated }

type EventResultCreated struct {
	Result Result
}

func (EventResultCreated) Name() string { return EventNameResultCreated }

type EventStandingsUpdated struct {
	Standings Standings
}

func (EventStandingsUpdated) Name() string { return EventNameStandingsUpdated }
