package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CloseReason records how a check-in was closed.
type CloseReason string

const (
	ClosedByCheckOut CloseReason = "checkout"
	ClosedByExpiry   CloseReason = "expired" // never checked out, closed by the sweeper
)

const VerificationGPS = "gps"

// MinVerifiedMinutes is the shortest session that counts toward rewards.
const MinVerifiedMinutes = 30

// CheckIn is one gym visit. It is open while CheckOutTime is nil.
type CheckIn struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID             primitive.ObjectID `bson:"userId" json:"userId" validate:"required"`
	GymID              primitive.ObjectID `bson:"gymId" json:"gymId" validate:"required"`
	GymName            string             `bson:"gymName" json:"gymName"`
	CheckInTime        time.Time          `bson:"checkInTime" json:"checkInTime" validate:"required"`
	CheckInDay         string             `bson:"checkInDay" json:"checkInDay"` // local date, one check-in per user per day
	CheckOutTime       *time.Time         `bson:"checkOutTime" json:"checkOutTime,omitempty"`
	Latitude           float64            `bson:"latitude" json:"latitude" validate:"latitude"`
	Longitude          float64            `bson:"longitude" json:"longitude" validate:"longitude"`
	DurationMinutes    *int               `bson:"durationMinutes,omitempty" json:"durationMinutes,omitempty" validate:"omitempty,min=0"`
	IsVerified         bool               `bson:"isVerified" json:"isVerified"`
	VerificationMethod string             `bson:"verificationMethod" json:"verificationMethod"`
	ClosedReason       CloseReason        `bson:"closedReason,omitempty" json:"closedReason,omitempty"`
}

// DayLayout formats CheckInDay.
const DayLayout = "2006-01-02"

// DayOf returns the calendar date of t in loc.
func DayOf(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DayLayout)
}

// IsOpen reports whether the visit has not been closed yet.
func (c *CheckIn) IsOpen() bool {
	return c.CheckOutTime == nil
}

// SessionMinutes returns the whole minutes between in and out, never negative.
func SessionMinutes(in, out time.Time) int {
	d := out.Sub(in)
	if d < 0 {
		return 0
	}
	return int(d / time.Minute)
}

// IsVerifiedDuration reports whether a session of the given length counts
// toward rewards.
func IsVerifiedDuration(minutes, minVerified int) bool {
	return minutes >= minVerified
}

// ActiveSession is the cached pointer to a user's open check-in.
type ActiveSession struct {
	CheckInID primitive.ObjectID `json:"checkInId"`
	GymName   string             `json:"gymName"`
}
