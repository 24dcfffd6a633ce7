// Package entrypoint is the Entry-Point Classifier (C9): a per-language
// pattern bank, data-driven in the same spirit as C1's NodePatterns,
// scored against each function/method node's name and decorator metadata.
package entrypoint

import "strings"

// Pattern is one recognizable entry-point shape for a language. A node
// matches if its name equals NameEquals (when set) or one of its
// `decorators` metadata entries contains any of DecoratorContains
// (when set). At least one of the two must be set.
type Pattern struct {
	Kind              string
	NameEquals        string
	DecoratorContains []string
	Confidence        float64
}

func (p Pattern) matches(name string, decorators []string) bool {
	if p.NameEquals != "" && name == p.NameEquals {
		return true
	}
	for _, want := range p.DecoratorContains {
		for _, have := range decorators {
			if want != "" && strings.Contains(have, want) {
				return true
			}
		}
	}
	return false
}

// PatternBank is the bundled per-language set of entry patterns (spec
// §4.9: "HTTP route decorators, framework controller attributes,
// main/__main__, message-queue handlers, CLI command registrations").
var PatternBank = map[string][]Pattern{
	"go": {
		{Kind: "main-function", NameEquals: "main", Confidence: 1.0},
		{Kind: "init-function", NameEquals: "init", Confidence: 0.6},
		{Kind: "http-handler", DecoratorContains: []string{"http.HandleFunc", "router.Handle"}, Confidence: 0.7},
		{Kind: "cobra-command", DecoratorContains: []string{"cobra.Command"}, Confidence: 0.6},
	},
	"python": {
		{Kind: "main-guard", NameEquals: "__main__", Confidence: 0.8},
		{Kind: "http-route", DecoratorContains: []string{"@app.route", "@router.get", "@router.post", "@app.get", "@app.post"}, Confidence: 0.9},
		{Kind: "mq-handler", DecoratorContains: []string{"@app.task", "@celery.task", "@shared_task"}, Confidence: 0.8},
		{Kind: "cli-command", DecoratorContains: []string{"@click.command", "@cli.command"}, Confidence: 0.7},
	},
	"javascript": {
		{Kind: "http-route", DecoratorContains: []string{"app.get", "app.post", "app.put", "app.delete", "router.get", "router.post"}, Confidence: 0.8},
		{Kind: "mq-handler", DecoratorContains: []string{"consumer.on", "channel.consume"}, Confidence: 0.6},
		{Kind: "main-module", NameEquals: "main", Confidence: 0.5},
	},
	"typescript": {
		{Kind: "http-route", DecoratorContains: []string{"@Get", "@Post", "@Put", "@Delete", "@Controller"}, Confidence: 0.9},
		{Kind: "mq-handler", DecoratorContains: []string{"@EventPattern", "@MessagePattern"}, Confidence: 0.7},
		{Kind: "main-module", NameEquals: "main", Confidence: 0.5},
	},
	"java": {
		{Kind: "main-method", NameEquals: "main", Confidence: 1.0},
		{Kind: "http-route", DecoratorContains: []string{"@GetMapping", "@PostMapping", "@RequestMapping", "@RestController"}, Confidence: 0.9},
		{Kind: "mq-handler", DecoratorContains: []string{"@KafkaListener", "@RabbitListener"}, Confidence: 0.7},
	},
	"ruby": {
		{Kind: "http-route", DecoratorContains: []string{"get '", "post '", "namespace '"}, Confidence: 0.7},
		{Kind: "rake-task", DecoratorContains: []string{"task :"}, Confidence: 0.5},
	},
	"rust": {
		{Kind: "main-function", NameEquals: "main", Confidence: 1.0},
		{Kind: "http-route", DecoratorContains: []string{"#[get(", "#[post(", "#[route("}, Confidence: 0.8},
	},
	"c": {
		{Kind: "main-function", NameEquals: "main", Confidence: 1.0},
	},
	"cpp": {
		{Kind: "main-function", NameEquals: "main", Confidence: 1.0},
	},
}
