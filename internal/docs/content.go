package docs

var topics = []Topic{
	{
		Name:    "quickstart",
		Title:   "Quick Start",
		Summary: "Get up and running in under 5 minutes",
		Content: topicQuickstart,
	},
	{
		Name:    "workflow",
		Title:   "Workflow Steps",
		Summary: "What each step does and where it goes next",
		Content: topicWorkflow,
	},
	{
		Name:    "endpoints",
		Title:   "API Endpoints",
		Summary: "Backend webhook endpoints and request signing",
		Content: topicEndpoints,
	},
	{
		Name:    "config",
		Title:   "Configuration",
		Summary: "Workspace preferences and environment variables",
		Content: topicConfig,
	},
	{
		Name:    "web",
		Title:   "Web Interface",
		Summary: "Pages served by docugithub serve",
		Content: topicWeb,
	},
}

const topicQuickstart = "# Quick Start\n\n" +
	"1. Create a workspace:\n\n" +
	"```\ncd your-project\ndocugithub init\n```\n\n" +
	"   This creates `.docugithub/config.yaml` with your default preferences.\n\n" +
	"2. Point the tool at the workflow backend:\n\n" +
	"```\nexport N8N_WEBHOOK_BASE=https://n8n.example.com/webhook\nexport WEBHOOK_SECRET=...\n```\n\n" +
	"3. Generate a README in one go:\n\n" +
	"```\ndocugithub run https://github.com/acme/widgets\n```\n\n" +
	"   The run starts a session, analyzes the repository, sends your preferences\n" +
	"   and generates the document.\n\n" +
	"4. Revise it with AI, then push it to GitHub:\n\n" +
	"```\ndocugithub edit\ndocugithub publish\n```\n\n" +
	"Run `docugithub status` at any time to see where the session is.\n"

const topicWorkflow = "# Workflow Steps\n\n" +
	"A session moves through these steps in order. Each one is a command.\n\n" +
	"| Step | Command | Next |\n" +
	"|------|---------|------|\n" +
	"| initialize | `docugithub start <url>` | analyze |\n" +
	"| authenticate | `docugithub auth` | optional, any time |\n" +
	"| analyze | `docugithub analyze` | configure |\n" +
	"| configure | `docugithub configure` | generate |\n" +
	"| generate | `docugithub generate` | edit |\n" +
	"| edit | `docugithub chat`, `docugithub edit` | publish |\n" +
	"| publish | `docugithub publish` | done |\n\n" +
	"## Failures\n\n" +
	"A failed step leaves the session in the `error` stage with the message\n" +
	"shown by `docugithub status`. Run the same command again to retry.\n" +
	"Nothing is retried automatically.\n\n" +
	"If generation fails, the session waits a few seconds and then opens the\n" +
	"editor with a placeholder README (demo mode) so you can keep working.\n" +
	"`docugithub run --publish` never publishes a placeholder.\n\n" +
	"## Editing\n\n" +
	"`chat` sends an instruction to the AI. With `--selection` only the first\n" +
	"occurrence of the selected text is replaced; without it the whole document\n" +
	"is rewritten. Any change after publishing marks the document unpublished.\n"

const topicEndpoints = "# API Endpoints\n\n" +
	"Every step posts JSON to the workflow backend at `$N8N_WEBHOOK_BASE/<endpoint>`.\n\n" +
	"- `POST /webhook/initialize` creates the session\n" +
	"- `POST /webhook/analyze` runs the AI analysis\n" +
	"- `POST /webhook/preferences` sets preferences\n" +
	"- `POST /webhook/generate` generates the README\n" +
	"- `POST /webhook/chat` revises it\n" +
	"- `POST /webhook/push` pushes it to GitHub\n\n" +
	"## Signing\n\n" +
	"When `WEBHOOK_SECRET` is set, the body is serialized once and signed with\n" +
	"HMAC-SHA256. The signature travels in `x-webhook-signature` as\n" +
	"`sha256=<hex>`, computed over exactly the bytes that are sent.\n" +
	"Without a secret requests go out unsigned.\n\n" +
	"The access token, when present, is sent as `Authorization: Bearer <token>`.\n"

const topicConfig = "# Configuration\n\n" +
	"## Workspace file\n\n" +
	"`.docugithub/config.yaml` holds the preferences a fresh session starts with:\n\n" +
	"```yaml\n" +
	"name: widgets\n" +
	"default-style: detailed        # simple, detailed or vibrant\n" +
	"default-topics:\n" +
	"  - Quick Start\n" +
	"  - Installation\n" +
	"available-topics: []           # empty offers the built-in list\n" +
	"commit-message: \"docs: update README via DocuGithub\"\n" +
	"reference-images: []           # http(s) URLs\n" +
	"```\n\n" +
	"## Environment\n\n" +
	"| Variable | Meaning | Default |\n" +
	"|----------|---------|---------|\n" +
	"| `N8N_WEBHOOK_BASE` | workflow backend base URL, required | |\n" +
	"| `WEBHOOK_SECRET` | request signing secret | unsigned |\n" +
	"| `AUTH0_DOMAIN`, `AUTH0_CLIENT_ID` | device login | disabled |\n" +
	"| `AUTH0_AUDIENCE` | token audience | `https://api.github.com/` |\n" +
	"| `AUTH0_SCOPE` | token scopes | `openid profile email read:user repo` |\n" +
	"| `SUPABASE_URL`, `SUPABASE_ANON_KEY` | session records | local ids |\n" +
	"| `GITHUB_API_URL` | GitHub REST API | `https://api.github.com` |\n" +
	"| `GITHUB_RPS` | GitHub requests per second | `5` |\n" +
	"| `HTTP_TIMEOUT` | request timeout | `60s` |\n" +
	"| `FALLBACK_DELAY` | wait before demo mode | `3s` |\n" +
	"| `HOST`, `PORT` | serve address | `127.0.0.1`, `5173` |\n" +
	"| `LOG_LEVEL`, `LOG_DEV` | log level, console logs | `info`, `false` |\n\n" +
	"`docugithub doctor` reports what is missing.\n"

const topicWeb = "# Web Interface\n\n" +
	"`docugithub serve` runs the same workflow in the browser.\n\n" +
	"| Page | Purpose |\n" +
	"|------|---------|\n" +
	"| `/` | enter a repository URL or pick a recent repository |\n" +
	"| `/auth` | sign in or paste a token |\n" +
	"| `/analysis` | analyze the repository |\n" +
	"| `/config` | choose style, topics and reference images |\n" +
	"| `/generating` | generate the README |\n" +
	"| `/editor` | edit, revise with AI, preview and publish |\n" +
	"| `/docs` | this documentation |\n\n" +
	"Opening `/{owner}/{repo}` starts a session for\n" +
	"`https://github.com/{owner}/{repo}` and continues at `/auth`.\n\n" +
	"Prometheus metrics are served at `/metrics`.\n"
