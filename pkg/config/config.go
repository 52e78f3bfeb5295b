package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v2"
)

// AllowSemantics selects how multiple allow rules inside one permission block
// are combined. "lastRuleWins" reproduces the historical behavior where only
// the final allow rule's match result counts; "anyRule" grants when any allow
// rule matches.
const (
	AllowLastRuleWins = "lastRuleWins"
	AllowAnyRule      = "anyRule"
)

type Server struct {
	ListenAddress string `yaml:"listenAddress"`
	TLSCertFile   string `yaml:"tlsCertFile"`
	TLSKeyFile    string `yaml:"tlsKeyFile"`
	// TrustedProxies lists IPs/CIDRs trusted for X-Forwarded-For headers.
	TrustedProxies []string `yaml:"trustedProxies"`
}

type AuthorizationServer struct {
	URL          string `yaml:"url"`
	JWKSEndpoint string `yaml:"jwksEndpoint"`
	// CertificateAuthority is an optional PEM bundle used when fetching the JWKS.
	CertificateAuthority string `yaml:"certificateAuthority"`
	InsecureSkipVerify   bool   `yaml:"insecureSkipVerify"`
}

// Catalog configures the identity catalog used to resolve group membership
// for a user ref. Only Keycloak is supported.
type Catalog struct {
	Disable      bool   `yaml:"disable"`
	BaseURL      string `yaml:"baseURL"`
	Realm        string `yaml:"realm"`
	ClientID     string `yaml:"clientID"`
	ClientSecret string `yaml:"clientSecret"`
	// GroupNamespace is the catalog namespace used when canonicalizing group
	// names into refs of the form group:<namespace>/<name>. Defaults to "default".
	GroupNamespace string `yaml:"groupNamespace"`
	CacheTTL       string `yaml:"cacheTTL"`
	RequestTimeout string `yaml:"requestTimeout"`
}

type Audit struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	TLS     bool     `yaml:"tls"`
}

type Compat struct {
	// AllowRuleSemantics is either "lastRuleWins" (default, observed legacy
	// behavior) or "anyRule".
	AllowRuleSemantics string `yaml:"allowRuleSemantics"`
}

// PodRule is one raw allow/except/deny/unless rule. Pointers distinguish a key
// that is absent (nil, compiles to the match-all pattern) from one declared as
// an empty list (non-nil empty, matches nothing). That distinction is
// load-bearing and must survive YAML decoding.
type PodRule struct {
	Pods *[]string `yaml:"pods"`
	Refs *[]string `yaml:"refs"`
}

// PodRuleBlock is the raw {allow, except, deny, unless} subtree attached to a
// namespace key. A nil Allow means the block declared no allow section at all,
// which compiles to an unconditional grant for that block.
type PodRuleBlock struct {
	Allow  *[]PodRule `yaml:"allow"`
	Except *[]PodRule `yaml:"except"`
	Deny   *[]PodRule `yaml:"deny"`
	Unless *[]PodRule `yaml:"unless"`
}

// NamespaceEntry and BlockEntry model the single-key mappings the config file
// uses ({namespaceName: value}). Lists of them preserve declaration order,
// which matters because permission blocks for the same namespace are evaluated
// in config order.
type NamespaceEntry struct {
	Namespace    string
	IdentityRefs []string
}

type BlockEntry struct {
	Namespace string
	Block     PodRuleBlock
}

type ClusterConfig struct {
	Home                  string                    `yaml:"home"`
	CredentialSecret      string                    `yaml:"credentialSecret"`
	Title                 string                    `yaml:"title"`
	NamespacePermissions  []map[string][]string     `yaml:"namespacePermissions"`
	PodViewPermissions    []map[string]PodRuleBlock `yaml:"podViewPermissions"`
	PodRestartPermissions []map[string]PodRuleBlock `yaml:"podRestartPermissions"`
}

type Config struct {
	Server              Server                   `yaml:"server"`
	AuthorizationServer AuthorizationServer      `yaml:"authorizationServer"`
	Catalog             Catalog                  `yaml:"catalog"`
	Audit               Audit                    `yaml:"audit"`
	Compat              Compat                   `yaml:"compat"`
	Clusters            map[string]ClusterConfig `yaml:"clusters"`
}

// Load loads the streamgate configuration from a file path. If configPath is
// empty it defaults to "./config.yaml"; the STREAMGATE_CONFIG environment
// variable overrides both.
func Load(configPath ...string) (Config, error) {
	path := "./config.yaml"
	if len(configPath) > 0 && configPath[0] != "" {
		path = configPath[0]
	}
	if env := os.Getenv("STREAMGATE_CONFIG"); env != "" {
		path = env
	}

	var config Config

	content, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("trying to open streamgate config file %s: %v", path, err)
	}

	if err := yaml.Unmarshal(content, &config); err != nil {
		return config, fmt.Errorf("error unmarshaling YAML %s: %v", path, err)
	}
	return config, nil
}

// NamespaceEntries flattens the namespacePermissions list of single-key
// mappings into ordered entries. A mapping that (unusually) carries several
// keys is expanded in sorted key order so the result stays deterministic.
func (c ClusterConfig) NamespaceEntries() []NamespaceEntry {
	out := make([]NamespaceEntry, 0, len(c.NamespacePermissions))
	for _, m := range c.NamespacePermissions {
		for _, k := range sortedKeys(m) {
			out = append(out, NamespaceEntry{Namespace: k, IdentityRefs: m[k]})
		}
	}
	return out
}

// BlockEntries flattens a podViewPermissions/podRestartPermissions list into
// ordered block entries. The same namespace may appear more than once; each
// occurrence stays a separate entry.
func BlockEntries(raw []map[string]PodRuleBlock) []BlockEntry {
	out := make([]BlockEntry, 0, len(raw))
	for _, m := range raw {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out = append(out, BlockEntry{Namespace: k, Block: m[k]})
		}
	}
	return out
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
