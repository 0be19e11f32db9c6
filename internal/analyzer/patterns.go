package analyzer

import (
	"strings"

	regexp "github.com/wasilibs/go-re2"
	"k8s.io/apimachinery/pkg/util/sets"
)

type probe struct {
	name string
	reg  *regexp.Regexp
}

var (
	downloadExecProbes = []probe{
		{"curl piped to shell", regexp.MustCompile(`curl\s[^|\n]*\|\s*(sudo\s+)?(ba|z|da)?sh\b`)},
		{"wget piped to shell", regexp.MustCompile(`wget\s[^|\n]*\|\s*(sudo\s+)?(ba|z|da)?sh\b`)},
		{"shell process substitution of a download", regexp.MustCompile(`(ba|z)?sh\s+<\(\s*(curl|wget)\b`)},
		{"eval of a download", regexp.MustCompile(`eval\s+["']?\$\(\s*(curl|wget)\b`)},
		{"download piped to interpreter", regexp.MustCompile(`(curl|wget)\s[^|\n]*\|\s*(sudo\s+)?(python[0-9.]*|perl|ruby|node)\b`)},
	}

	outboundReg = regexp.MustCompile(`\b(curl|wget|nc|ncat|scp|rsync|ftp|Invoke-WebRequest)\s`)

	secretVariableReg = regexp.MustCompile(`(?i)token|password|passwd|secret|key|credential`)

	echoSecretReg = regexp.MustCompile(`(?i)\becho\b[^\n]*\$\{?[A-Z0-9_]*(TOKEN|SECRET|PASSWORD|KEY)[A-Z0-9_]*\}?`)

	secretContentProbes = []probe{
		{"hard-coded password", regexp.MustCompile(`(?i)(password|passwd|pwd)["']?\s*[:=]\s*["'][^"'\s]{4,}["']`)},
		{"hard-coded token", regexp.MustCompile(`(?i)(api[_-]?key|access[_-]?token|auth[_-]?token|secret[_-]?key|token)["']?\s*[:=]\s*["'][A-Za-z0-9_\-./+=]{12,}["']`)},
		{"private key", regexp.MustCompile(`-----BEGIN (RSA |EC |DSA |OPENSSH |PGP |ENCRYPTED )?PRIVATE KEY`)},
		{"AWS access key", regexp.MustCompile(`\b(AKIA|ASIA)[0-9A-Z]{16}\b`)},
		{"GitLab personal access token", regexp.MustCompile(`\bglpat-[0-9A-Za-z_\-]{20}\b`)},
	}

	// file extensions considered for the hard-coded secret scan
	sourceExtensions = sets.NewString(".js", ".ts", ".py", ".go", ".java", ".rb", ".php",
		".sh", ".env", ".yml", ".yaml", ".json", ".properties", ".cfg", ".ini", ".conf", ".tf", ".xml")

	gitignoreSecretGlobs = []string{".env", "*.pem", "*.key", "*.p12", "*.pfx", "id_rsa", "secrets", "credentials"}

	latestImageReg = regexp.MustCompile(`:latest$`)

	privilegedProbes = []probe{
		{"privileged flag", regexp.MustCompile(`(?i)--privileged\b|privileged\s*[:=]\s*["']?true`)},
		{"docker in docker service", regexp.MustCompile(`(?i)docker:[^\s"']*dind`)},
	}

	mountReg = regexp.MustCompile(`(?:-v|--volume)[\s=]+["']?([^:\s"']+):|--mount[\s=]+[^\s]*(?:source|src)=([^,\s]+)`)

	dangerPrefixMountPaths = []string{"/var/run/docker.sock", "/var/run", "/run/containerd",
		"/etc/crontab", "/sys/fs/cgroup", "/root/.ssh", "/private/etc"}

	dangerFullPaths = []string{"/", "/etc", "/proc", "/sys", "/root", "/home", "/boot", "/dev"}

	tlsOffProbes = []probe{
		{"Docker TLS disabled", regexp.MustCompile(`DOCKER_TLS_CERTDIR=(""|'')?\s*$`)},
		{"Git SSL verification disabled", regexp.MustCompile(`(?i)GIT_SSL_NO_VERIFY=["']?(1|true)`)},
		{"curl without TLS verification", regexp.MustCompile(`curl\s([^\n]*\s)?(-[a-zA-Z]*k[a-zA-Z]*|--insecure)\b`)},
		{"wget without TLS verification", regexp.MustCompile(`wget\s[^\n]*--no-check-certificate`)},
		{"Node TLS verification disabled", regexp.MustCompile(`NODE_TLS_REJECT_UNAUTHORIZED=["']?0`)},
		{"git sslVerify disabled", regexp.MustCompile(`(?i)http\.sslVerify\s+false`)},
	}

	resourceLimitReg = regexp.MustCompile(`(?i)KUBERNETES_(CPU|MEMORY)_(LIMIT|REQUEST)|--cpus[\s=]|--memory[\s=]|-m\s+[0-9]+[gm]\b|resources:\s*$|limits:`)

	signingReg  = regexp.MustCompile(`(?i)\b(sha256sum|sha512sum|shasum|md5sum|cosign\s+sign|gpg\s+[^\n]*(--detach-sign|--sign|--clearsign)|notation\s+sign|slsa-)`)
	verifyReg   = regexp.MustCompile(`(?i)(sha256sum|sha512sum|shasum)\s[^\n]*(-c\b|--check)|cosign\s+verify|gpg\s[^\n]*--verify|notation\s+verify`)
	downloadReg = regexp.MustCompile(`\b(curl|wget)\s[^\n]*https?://`)
	digestReg   = regexp.MustCompile(`@sha256:[0-9a-f]{64}$`)

	checksumManifests = []string{"SHA256SUMS", "checksums.txt", "sha256sums.txt"}

	logDestinations = []string{"datadog", "splunk", "loki", "fluentd", "fluent-bit", "elastic",
		"logstash", "sentry", "syslog", "cloudwatch", "graylog", "newrelic"}

	debugTraceProbes = []probe{
		{"CI_DEBUG_TRACE enabled", regexp.MustCompile(`(?i)CI_DEBUG_(TRACE|SERVICES)=["']?true`)},
		{"shell tracing", regexp.MustCompile(`(^|[;&|]\s*)set\s+-[a-zA-Z]*x`)},
	}

	npmInstallReg = regexp.MustCompile(`\bnpm\s+(install|i)\b`)

	protectedBranchNames = sets.NewString("main", "master")
	sensitiveBranchReg   = regexp.MustCompile(`(?i)^(prod|production|release)([/_-].*)?$`)
	serviceAccountReg    = regexp.MustCompile(`(?i)service|shared`)
	devScopeReg          = regexp.MustCompile(`(?i)dev|staging|test|review`)
	prodScopeReg         = regexp.MustCompile(`(?i)prod|production|live`)
	privilegedRunnerReg  = regexp.MustCompile(`(?i)privileged|dind`)
)

// matchProbes returns the names of the probes matching any line.
func matchProbes(probes []probe, lines []string) []string {
	var hits []string
	for _, p := range probes {
		for _, l := range lines {
			if p.reg.MatchString(l) {
				hits = append(hits, p.name)
				break
			}
		}
	}
	return hits
}

// joinProbes names the probes matching the lines.
func joinProbes(probes []probe, lines []string) string {
	return strings.Join(matchProbes(probes, lines), ", ")
}

// matchingLines returns the lines any of the probes match, at most limit.
func matchingLines(probes []probe, lines []string, limit int) []string {
	var out []string
	for _, l := range lines {
		for _, p := range probes {
			if p.reg.MatchString(l) {
				out = append(out, strings.TrimSpace(l))
				break
			}
		}
		if len(out) >= limit {
			break
		}
	}
	return out
}

func checkPrefixMountPaths(path string) bool {
	for _, p := range dangerPrefixMountPaths {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func checkFullPaths(path string) bool {
	for _, p := range dangerFullPaths {
		if path == p {
			return true
		}
	}
	return false
}

func checkMountPath(path string) bool {
	return checkPrefixMountPaths(path) || checkFullPaths(path)
}

// imageTagless reports images pulled without tag or digest, which resolve to latest.
func imageTagless(image string) bool {
	if strings.Contains(image, "@") || strings.Contains(image, "$") {
		return false
	}
	last := image[strings.LastIndex(image, "/")+1:]
	return !strings.Contains(last, ":")
}

// imageRegistry returns the registry host of an image reference.
func imageRegistry(image string) string {
	i := strings.Index(image, "/")
	if i < 0 {
		return "docker.io"
	}
	host := image[:i]
	if strings.ContainsAny(host, ".:") || host == "localhost" {
		return host
	}
	return "docker.io"
}
