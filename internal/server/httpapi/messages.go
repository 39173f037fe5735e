package httpapi

import "fmt"

// Client-facing message texts. Kept in one place so handlers stay terse and
// the wording stays consistent across endpoints.
const (
	msgEncryptionRequired = "Encryption is required. To obtain RSA public key: GET api/v1/rsa"
	msgInternalError      = "An internal server error occurred. If the problem persists, please contact software developer."
	msgPartialCommit      = "Some of entries provided to be updated or deleted were not found. " +
		"It may occur due to deletion of these entries with another client while this client was offline. " +
		"All entries found have been updated. If the problem persists, please contact software developer."
	msgLoginOccupied = "Username already occupied. Please enter a different user name."
)

// wwwAuthenticate tells an unauthorized client how to obtain credentials the
// server will accept.
const wwwAuthenticate = "User's account current password encrypted with RSA public key. To obtain RSA public key: GET api/v1/rsa"

func msgIncorrect(value string) string {
	return fmt.Sprintf("The %s provided is incorrect. Please enter a correct one and try again.", value)
}

func msgRequired(value string) string {
	article := "A"
	if len(value) > 0 {
		switch value[0] {
		case 'a', 'e', 'i', 'o', 'u', 'y':
			article = "An"
		}
	}
	return fmt.Sprintf("%s %s is required to confirm identity.", article, value)
}

func msgCorruptedOrMissing(name string) string {
	return fmt.Sprintf("The %s provided is corrupted or missing.", name)
}
