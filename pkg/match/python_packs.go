package match

var (
	pypis = []string{"requests", "Django", "Flask", "datadog", "numpy", "Pillow", "PyYAML", "PySocks",
		"Scrapy", "scipy", "Twisted", "torch", "torchvision", "pandas", "pastas", "algoliasearch", "tornado",
		"pypcap", "semidbm", "signalfx", "cassandra-driver", "ShopifyAPI", "zoomeye", "osc",
		"distributed", "virtualenv", "selenium", "bs4", "beautifulsoup4", "lxml", "pylint"}

	maliciousPypis = map[string]string{
		"smi":          "pysmi",
		"smb":          "pysmb",
		"opencv":       "opencv-python",
		"python-mysql": "PyMySQL",
		"python-ftp":   "pyftpdlib",
		"ascii2text":   "art",
		"zlibsrc":      "zlib",
		"browserdiv":   "pybrowsers",
	}
)

// PyMatch classifies a PyPI dependency name.
func PyMatch(pack string) Suspicion {
	return match(pack, pypis, maliciousPypis, nil)
}
