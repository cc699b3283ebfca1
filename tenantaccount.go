// tenantaccount.go
package searchcore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// MultiTenantClient routes searches to per-tenant AWS accounts.
// Tenants with dedicated accounts get an assume-role client; tenants
// without one share the base client and rely on condition-level
// scoping.
type MultiTenantClient struct {
	base       *Client
	baseConfig aws.Config
	accounts   map[string]TenantAccount
	cache      sync.Map // tenant ID → *tenantEntry
	mu         sync.RWMutex
}

// TenantAccount holds the account binding for one tenant.
type TenantAccount struct {
	RoleARN    string
	ExternalID string
	Region     string
	Tables     map[string]TableKeys
	// Optional: custom session duration (default is 1 hour)
	SessionDuration time.Duration
}

type tenantEntry struct {
	client *Client
	expiry time.Time
}

func (e *tenantEntry) isExpired() bool {
	return time.Now().After(e.expiry)
}

// NewMultiTenant creates a tenant-routing client. base serves tenants
// without a dedicated account.
func NewMultiTenant(base *Client, accounts map[string]TenantAccount) (*MultiTenantClient, error) {
	baseConfig, err := config.LoadDefaultConfig(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to load base AWS config: %w", err)
	}
	if accounts == nil {
		accounts = make(map[string]TenantAccount)
	}
	return &MultiTenantClient{
		base:       base,
		baseConfig: baseConfig,
		accounts:   accounts,
	}, nil
}

// Tenant returns the client for the given tenant. An empty tenant ID
// or a tenant with no dedicated account returns the base client.
// Assume-role clients are cached until shortly before their session
// credentials expire.
func (m *MultiTenantClient) Tenant(tenantID string) (*Client, error) {
	if tenantID == "" {
		return m.base, nil
	}

	if cached, ok := m.cache.Load(tenantID); ok {
		if entry, ok := cached.(*tenantEntry); ok && !entry.isExpired() {
			return entry.client, nil
		}
	}

	m.mu.RLock()
	account, ok := m.accounts[tenantID]
	m.mu.RUnlock()
	if !ok {
		return m.base, nil
	}

	return m.createTenantClient(tenantID, account)
}

// AddTenant dynamically binds a tenant to a dedicated account.
func (m *MultiTenantClient) AddTenant(tenantID string, account TenantAccount) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[tenantID] = account
}

// RemoveTenant unbinds a tenant and drops its cached client.
func (m *MultiTenantClient) RemoveTenant(tenantID string) {
	m.mu.Lock()
	delete(m.accounts, tenantID)
	m.mu.Unlock()

	m.cache.Delete(tenantID)
}

func (m *MultiTenantClient) createTenantClient(tenantID string, account TenantAccount) (*Client, error) {
	stsClient := sts.NewFromConfig(m.baseConfig)

	sessionDuration := account.SessionDuration
	if sessionDuration == 0 {
		sessionDuration = time.Hour
	}

	creds := stscreds.NewAssumeRoleProvider(stsClient, account.RoleARN, func(o *stscreds.AssumeRoleOptions) {
		if account.ExternalID != "" {
			o.ExternalID = &account.ExternalID
		}
		o.RoleSessionName = fmt.Sprintf("searchcore-%s", tenantID)
		o.Duration = sessionDuration
	})

	cfg := Config{
		Region:              account.Region,
		MaxRetries:          3,
		Tables:              account.Tables,
		CredentialsProvider: creds,
	}

	client, err := New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create client for tenant %s: %w", tenantID, err)
	}

	entry := &tenantEntry{
		client: client,
		// Re-assume 5 minutes before the session credentials expire.
		expiry: time.Now().Add(sessionDuration - 5*time.Minute),
	}
	m.cache.Store(tenantID, entry)

	return client, nil
}
