package db

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"hill-valley/internal/access"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Seed struct {
	Questions   []SeedQuestion   `yaml:"questions"`
	Props       []SeedProp       `yaml:"props"`
	Costumes    []SeedCostume    `yaml:"costumes"`
	AccessCodes []SeedAccessCode `yaml:"access_codes"`
	Admins      []SeedAdmin      `yaml:"admins"`
}

type SeedQuestion struct {
	Level    int      `yaml:"level"`
	Text     string   `yaml:"text"`
	Options  []string `yaml:"options"`
	Answer   int      `yaml:"answer"`
	Points   int      `yaml:"points"`
	Category string   `yaml:"category"`
}

type SeedProp struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Category    string `yaml:"category"`
	Order       int    `yaml:"order"`
}

type SeedCostume struct {
	Name   string `yaml:"name"`
	Wearer string `yaml:"wearer"`
}

type SeedAccessCode struct {
	Code      string     `yaml:"code"`
	Label     string     `yaml:"label"`
	Purpose   string     `yaml:"purpose"`
	MaxUses   int        `yaml:"max_uses"`
	ExpiresAt *time.Time `yaml:"expires_at"`
}

type SeedAdmin struct {
	Email       string `yaml:"email"`
	DisplayName string `yaml:"display_name"`
	Password    string `yaml:"password"`
	Role        string `yaml:"role"`
}

type SeedCounts struct {
	Questions   int
	Props       int
	Costumes    int
	AccessCodes int
	Admins      int
}

func ReadSeed(path string) (Seed, error) {
	var seed Seed
	data, err := os.ReadFile(path)
	if err != nil {
		return seed, err
	}
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return seed, fmt.Errorf("parse seed %s: %w", path, err)
	}
	return seed, nil
}

// LoadSeed inserts the records of a seed file. Existing rows (matched by
// their natural keys) are left alone so the seed can be re-run.
func LoadSeed(conn *gorm.DB, seed Seed) (SeedCounts, error) {
	var counts SeedCounts
	if conn == nil {
		return counts, errors.New("db connection is nil")
	}
	err := conn.Transaction(func(tx *gorm.DB) error {
		for i, sq := range seed.Questions {
			if sq.Answer < 0 || sq.Answer >= len(sq.Options) || len(sq.Options) < 2 || sq.Level <= 0 {
				return fmt.Errorf("question %d: invalid level, options or answer", i+1)
			}
			points := sq.Points
			if points <= 0 {
				points = 1
			}
			q := Question{
				Level:        sq.Level,
				Text:         strings.TrimSpace(sq.Text),
				Options:      sq.Options,
				CorrectIndex: sq.Answer,
				Points:       points,
				Category:     sq.Category,
				Position:     i,
			}
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&q)
			if res.Error != nil {
				return res.Error
			}
			counts.Questions += int(res.RowsAffected)
		}
		for _, sp := range seed.Props {
			p := Prop{
				Name:         strings.TrimSpace(sp.Name),
				Description:  sp.Description,
				Category:     sp.Category,
				DisplayOrder: sp.Order,
				Visible:      true,
			}
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&p)
			if res.Error != nil {
				return res.Error
			}
			counts.Props += int(res.RowsAffected)
		}
		for _, sc := range seed.Costumes {
			var existing int64
			if err := tx.Model(&Costume{}).Where("name = ? AND wearer_name = ?", sc.Name, sc.Wearer).Count(&existing).Error; err != nil {
				return err
			}
			if existing > 0 {
				continue
			}
			if err := tx.Create(&Costume{Name: sc.Name, WearerName: sc.Wearer, Approved: true}).Error; err != nil {
				return err
			}
			counts.Costumes++
		}
		for _, sa := range seed.AccessCodes {
			purpose := sa.Purpose
			if purpose == "" {
				purpose = access.PurposeGuest
			}
			if !access.ValidPurpose(purpose) {
				return fmt.Errorf("access code %q: unknown purpose %q", sa.Code, purpose)
			}
			code := access.Normalize(sa.Code)
			if code == "" {
				code = access.Generate(8)
			}
			ac := AccessCode{
				Code:      code,
				Label:     sa.Label,
				Purpose:   purpose,
				Active:    true,
				MaxUses:   sa.MaxUses,
				ExpiresAt: sa.ExpiresAt,
			}
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&ac)
			if res.Error != nil {
				return res.Error
			}
			counts.AccessCodes += int(res.RowsAffected)
		}
		for _, sa := range seed.Admins {
			email := strings.ToLower(strings.TrimSpace(sa.Email))
			if email == "" || sa.Password == "" {
				return errors.New("admin seed requires email and password")
			}
			role := sa.Role
			if role == "" {
				role = RoleAdmin
			}
			if !ValidRole(role) {
				return fmt.Errorf("admin %s: unknown role %q", email, role)
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(sa.Password), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			user := AdminUser{
				Email:        email,
				DisplayName:  sa.DisplayName,
				PasswordHash: string(hash),
				Role:         role,
				Active:       true,
			}
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&user)
			if res.Error != nil {
				return res.Error
			}
			counts.Admins += int(res.RowsAffected)
		}
		return nil
	})
	return counts, err
}
