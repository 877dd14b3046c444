package credentials

import (
	"crypto/rand"
	"math/big"
)

// PINLength is the length of generated child login PINs
const PINLength = 4

const pinDigits = "0123456789"

// GeneratePIN generates a random numeric PIN for a child profile. The PIN
// is stored bcrypt-hashed; the plaintext is shown to the parent once.
func GeneratePIN() (string, error) {
	pin := make([]byte, PINLength)
	for i := range pin {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(pinDigits))))
		if err != nil {
			return "", err
		}
		pin[i] = pinDigits[num.Int64()]
	}
	return string(pin), nil
}

// Avatar colors offered when creating a child profile
var avatarColors = []string{
	"coral", "amber", "mint", "sky", "lavender", "rose",
	"teal", "sunshine", "ocean", "forest", "berry", "peach",
}

// RandomAvatarColor picks a random avatar color for a new child profile
func RandomAvatarColor() (string, error) {
	num, err := rand.Int(rand.Reader, big.NewInt(int64(len(avatarColors))))
	if err != nil {
		return "", err
	}
	return avatarColors[num.Int64()], nil
}
