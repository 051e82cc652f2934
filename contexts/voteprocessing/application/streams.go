package application

// Stream names double as queue names on the default exchange, so a
// routing key and a queue name are the same string throughout this
// pipeline — there is no exchange fan-out to model.
const (
	StreamValidationLaw      = "vote.validation.law"
	StreamValidationElection = "vote.validation.election"
	StreamAggregation        = "vote.aggregation"
	StreamReview             = "vote.review"
)
