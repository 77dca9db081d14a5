package mocks

//go:generate mockgen -destination=./mock_venue.go -package=mocks github.com/rxtech-lab/argo-autotrader/internal/gateway Venue
//go:generate mockgen -destination=./mock_execution_gateway.go -package=mocks github.com/rxtech-lab/argo-autotrader/internal/gateway ExecutionGateway
//go:generate mockgen -destination=./mock_source.go -package=mocks github.com/rxtech-lab/argo-autotrader/internal/marketdata Source
//go:generate mockgen -destination=./mock_subscription.go -package=mocks github.com/rxtech-lab/argo-autotrader/internal/marketdata Subscription
//go:generate mockgen -destination=./mock_indicator_evaluator.go -package=mocks github.com/rxtech-lab/argo-autotrader/internal/engine IndicatorEvaluator
