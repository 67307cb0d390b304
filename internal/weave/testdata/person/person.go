// Package models holds the sample model used by the weaver tests.
package models

import "time"

// Person is a contact stored in the realm.
type Person struct {
	id        int64 `realm:"objectid"`
	firstName string
	lastName  string `realm:"indexed"`
	email     string `realm:"mapto=Email2"`
	birthday  time.Time
	nickname  string `realm:"ignored"`
}

// ID returns the primary key.
func (p *Person) ID() int64 { return p.id }

// SetID sets the primary key.
func (p *Person) SetID(v int64) { p.id = v }

func (p *Person) FirstName() string { return p.firstName }

func (p *Person) SetFirstName(v string) { p.firstName = v }

func (p *Person) LastName() string {
	return p.lastName
}

func (p *Person) SetLastName(v string) {
	p.lastName = v
}

func (p *Person) Email() string { return p.email }

func (p *Person) SetEmail(v string) { p.email = v }

func (p *Person) Birthday() time.Time { return p.birthday }

func (p *Person) SetBirthday(v time.Time) { p.birthday = v }

func (p *Person) Nickname() string { return p.nickname }

func (p *Person) SetNickname(v string) { p.nickname = v }

// FullName is derived and never stored.
func (p *Person) FullName() string { return p.firstName + " " + p.lastName }
