package template

import (
	"fmt"
	"strings"
)

// TemplateType represents the kind of service block to generate
type TemplateType string

const (
	TypeWeb      TemplateType = "web"
	TypeAPI      TemplateType = "api"
	TypeService  TemplateType = "service"
	TypeWorker   TemplateType = "worker"
	TypeDatabase TemplateType = "database"
	TypeDB       TemplateType = "db"
	TypeSimple   TemplateType = "simple"
)

// Generator produces starter TOML for stack configs. Generated credentials
// are placeholders on purpose: config validation refuses to run a bring-up
// until they are filled in.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Service generates one [[services]] block for the given type and name.
func (g *Generator) Service(templateType TemplateType, name string) (string, error) {
	switch templateType {
	case TypeWeb, TypeAPI, TypeService:
		return g.httpService(name), nil
	case TypeWorker:
		return g.workerService(name), nil
	case TypeDatabase, TypeDB:
		return g.databaseService(name), nil
	case TypeSimple:
		return g.simpleService(name), nil
	default:
		return "", fmt.Errorf("unknown template type: %s (supported: web, api, worker, database, simple)", templateType)
	}
}

func (g *Generator) httpService(name string) string {
	return fmt.Sprintf(`[[services]]
name = %q
container = %q
depends_on = ["db"]
mandatory = true
start_timeout = "90s"
poll_interval = "3s"

[services.probe]
type = "http"
url = "http://127.0.0.1:8080/healthz"
expect_status = 200
`, name, "stack-"+name)
}

func (g *Generator) workerService(name string) string {
	return fmt.Sprintf(`[[services]]
name = %q
container = %q
depends_on = ["db"]

[services.probe]
type = "exec"
command = "/usr/local/bin/worker-ready"
`, name, "stack-"+name)
}

func (g *Generator) databaseService(name string) string {
	return fmt.Sprintf(`[[services]]
name = %q
container = %q
mandatory = true
start_timeout = "120s"
`, name, "stack-"+name)
}

func (g *Generator) simpleService(name string) string {
	return fmt.Sprintf(`[[services]]
name = %q
container = %q
`, name, "stack-"+name)
}

// ServiceDef names one service to include in a starter config.
type ServiceDef struct {
	Name string
	Type TemplateType
}

// Starter generates a complete stack.toml skeleton: logging, bootstrap
// with placeholder credentials, a local history sink, and one service per
// requested definition, in order.
func (g *Generator) Starter(services []ServiceDef) (string, error) {
	var b strings.Builder
	b.WriteString(`env_files = [".env"]
use_os_env = true

[log]
level = "info"
file = ""

[bootstrap]
admin_dsn = "postgres://postgres:<ADMIN_PASSWORD>@127.0.0.1:5432/postgres?sslmode=disable"
app_dsn = "postgres://<OWNER_NAME>:<OWNER_PASSWORD>@127.0.0.1:5432/<DATABASE>?sslmode=disable"
database = "<DATABASE>"
schema = "app"
publication_prefix = "pub_"

[bootstrap.owner]
name = "<OWNER_NAME>"
password = "<OWNER_PASSWORD>"

[[bootstrap.app_roles]]
name = "<APP_ROLE>"
password = "<APP_ROLE_PASSWORD>"
login = true

[history]
type = "sqlite"
dsn = "stackup-history.db"

[server]
listen = "127.0.0.1:8321"

`)
	for _, def := range services {
		block, err := g.Service(def.Type, def.Name)
		if err != nil {
			return "", err
		}
		b.WriteString(block)
		b.WriteString("\n")
	}
	return b.String(), nil
}
