package redsys

import (
	"crypto/cipher"
	"crypto/des"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

const signatureVersion = "HMAC_SHA256_V1"

// sign derives a per-order key by 3DES-encrypting the padded order number
// with the merchant secret, then HMAC-SHA256s the parameter blob with it.
// This is the gateway's own algorithm; both legs of the protocol use it.
func (c *Client) sign(paddedOrder, parameterBlob string) (string, error) {
	key, err := c.orderKey(paddedOrder)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(parameterBlob))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// SignNotification produces the signature the gateway attaches to a
// notification blob, URL-safe alphabet. Counterpart of VerifyNotification;
// used by sandbox tooling that fabricates callbacks.
func (c *Client) SignNotification(parameterBlob string) (string, error) {
	n, err := DecodeNotification(parameterBlob)
	if err != nil {
		return "", err
	}
	padded, err := FormatOrderNumber(n.OrderNumber)
	if err != nil {
		return "", err
	}
	key, err := c.orderKey(padded)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(parameterBlob))
	return base64.URLEncoding.EncodeToString(mac.Sum(nil)), nil
}

// VerifyNotification recomputes the signature over an inbound parameter
// blob and compares it in constant time. The notification leg signs with
// the URL-safe alphabet.
func (c *Client) VerifyNotification(parameterBlob, signature string) error {
	n, err := DecodeNotification(parameterBlob)
	if err != nil {
		return err
	}
	padded, err := FormatOrderNumber(n.OrderNumber)
	if err != nil {
		return err
	}
	key, err := c.orderKey(padded)
	if err != nil {
		return err
	}
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(parameterBlob))
	expected := base64.URLEncoding.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrBadSignature
	}
	return nil
}

// orderKey 3DES-CBC-encrypts the zero-padded order number with a zero IV.
func (c *Client) orderKey(paddedOrder string) ([]byte, error) {
	block, err := des.NewTripleDESCipher(c.secretKey)
	if err != nil {
		return nil, err
	}

	plaintext := zeroPad([]byte(paddedOrder), block.BlockSize())
	key := make([]byte, len(plaintext))
	iv := make([]byte, block.BlockSize())
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(key, plaintext)
	return key, nil
}

func zeroPad(b []byte, blockSize int) []byte {
	if rem := len(b) % blockSize; rem != 0 {
		b = append(b, make([]byte, blockSize-rem)...)
	}
	return b
}
