package model

import (
	"time"
)

type User struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Email     string    `gorm:"column:email;type:varchar(255);uniqueIndex;not null" json:"email"`
	FirstName string    `gorm:"column:first_name;type:varchar(100)" json:"first_name"`
	LastName  string    `gorm:"column:last_name;type:varchar(100)" json:"last_name"`
	Role      Role      `gorm:"column:role;type:varchar(32);not null;default:standard" json:"role"`
	IsActive  bool      `gorm:"column:is_active;type:boolean;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// Client a business account managed in the dashboard; owns ad accounts through ClientAdAccount.
type Client struct {
	ID          uint64            `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	CompanyName string            `gorm:"column:company_name;type:varchar(255);not null" json:"company_name"`
	ContactName string            `gorm:"column:contact_name;type:varchar(255)" json:"contact_name"`
	Email       string            `gorm:"column:email;type:varchar(255)" json:"email"`
	Phone       string            `gorm:"column:phone;type:varchar(50)" json:"phone"`
	Address     string            `gorm:"column:address;type:varchar(255)" json:"address"`
	City        string            `gorm:"column:city;type:varchar(100)" json:"city"`
	PostalCode  string            `gorm:"column:postal_code;type:varchar(20)" json:"postal_code"`
	Notes       string            `gorm:"column:notes;type:text" json:"notes"`
	IsActive    bool              `gorm:"column:is_active;type:boolean;default:true" json:"is_active"`
	AdAccounts  []ClientAdAccount `gorm:"foreignKey:ClientID;constraint:OnDelete:CASCADE" json:"ad_accounts"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// ClientAdAccount links a client to an external advertising account (act_<id>).
type ClientAdAccount struct {
	ID          uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ClientID    uint64    `gorm:"column:client_id;not null;uniqueIndex:uq_client_ad_account" json:"client_id"`
	AdAccountID string    `gorm:"column:ad_account_id;type:varchar(64);not null;uniqueIndex:uq_client_ad_account;index" json:"ad_account_id"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// FacebookCredential stored Graph API key; secrets never leave the server.
type FacebookCredential struct {
	ID          uint64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name        string     `gorm:"column:name;type:varchar(128);not null" json:"name"`
	AppID       string     `gorm:"column:app_id;type:varchar(64)" json:"app_id"`
	AppSecret   string     `gorm:"column:app_secret;type:varchar(255)" json:"-"`
	AccessToken string     `gorm:"column:access_token;type:text;not null" json:"-"`
	IsActive    bool       `gorm:"column:is_active;type:boolean;default:true" json:"is_active"`
	ExpiresAt   *time.Time `gorm:"column:expires_at" json:"expires_at,omitempty"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string               { return "users" }
func (Client) TableName() string             { return "clients" }
func (ClientAdAccount) TableName() string    { return "client_ad_accounts" }
func (FacebookCredential) TableName() string { return "facebook_credentials" }
