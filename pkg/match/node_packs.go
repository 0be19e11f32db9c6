package match

var (
	npms = []string{"pug", "axios", "typescript", "mongodb", "lodash", "Mongoose", "redux",
		"jest", "qs", "rxjs", "fs-extra", "ua-parser-js", "koa", "express", "d3", "http-proxy",
		"Fastify", "socket.io", "dotenv", "async", "mssql", "cross-env", "redis", "nedb", "fusion"}

	// names published in the 2017 npm typosquatting campaign
	maliciousNpms = map[string]string{
		"crossenv":      "cross-env",
		"cross-env.js":  "cross-env",
		"d3.js":         "d3",
		"jquery.js":     "jquery",
		"mongose":       "mongoose",
		"mssql.js":      "mssql",
		"mssql-node":    "mssql",
		"nodesass":      "node-sass",
		"http-proxy.js": "http-proxy",
		"proxy.js":      "http-proxy",
		"nodemailer.js": "nodemailer",
		"noderequest":   "request",
		"sqliter":       "sqlite",
	}

	// widely used packages within edit distance of a popular one
	legitimateNpms = map[string]bool{
		"mysql":   true,
		"mysql2":  true,
		"ioredis": true,
		"jasmine": true,
		"preact":  true,
	}
)

// NpmMatch classifies an npm dependency name.
func NpmMatch(pack string) Suspicion {
	return match(pack, npms, maliciousNpms, legitimateNpms)
}
