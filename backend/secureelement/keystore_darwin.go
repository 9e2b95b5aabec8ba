//go:build darwin && cgo

package secureelement

/*
#cgo LDFLAGS: -framework Security -framework CoreFoundation -framework LocalAuthentication
#include <Security/Security.h>
#include <LocalAuthentication/LocalAuthentication.h>
#include <stdlib.h>
#include <string.h>

static int hsm_se_has_biometry(void) {
    LAContext *ctx = [[LAContext alloc] init];
    NSError *err = nil;
    BOOL ok = [ctx canEvaluatePolicy:LAPolicyDeviceOwnerAuthenticationWithBiometrics error:&err];
    return ok ? 1 : 0;
}

typedef struct {
    void   *pubkey_bytes;
    size_t  pubkey_len;
    int     os_status;
    int     la_domain;
} hsm_se_result_t;

static int hsm_se_cferror_code(CFErrorRef cferr, int *la_domain) {
    CFIndex code = CFErrorGetCode(cferr);
    CFStringRef domain = CFErrorGetDomain(cferr);
    if (la_domain != NULL) {
        *la_domain = (domain != NULL && CFStringHasPrefix(domain, CFSTR("com.apple.LocalAuthentication"))) ? 1 : 0;
    }
    return (int)code;
}

static SecAccessControlRef hsm_se_access_control(CFErrorRef *err, int require_biometric) {
    SecAccessControlCreateFlags flags = kSecAccessControlPrivateKeyUsage;
    if (require_biometric) {
        flags |= kSecAccessControlBiometryCurrentSet;
    }
    return SecAccessControlCreateWithFlags(
        kCFAllocatorDefault,
        kSecAttrAccessibleWhenUnlockedThisDeviceOnly,
        flags,
        err);
}

static hsm_se_result_t hsm_se_create_key(const char *tag, int require_biometric) {
    hsm_se_result_t result = {0};
    NSData *tagData = [[NSString stringWithUTF8String:tag] dataUsingEncoding:NSUTF8StringEncoding];

    CFErrorRef cferr = NULL;
    SecAccessControlRef ac = hsm_se_access_control(&cferr, require_biometric);
    if (cferr != NULL) {
        result.os_status = (int)CFErrorGetCode(cferr);
        CFRelease(cferr);
        return result;
    }

    NSDictionary *attrs = @{
        (id)kSecAttrKeyType:   (id)kSecAttrKeyTypeECSECPrimeRandom,
        (id)kSecAttrKeySizeInBits: @256,
        (id)kSecAttrTokenID:   (id)kSecAttrTokenIDSecureEnclave,
        (id)kSecPrivateKeyAttrs: @{
            (id)kSecAttrIsPermanent: @YES,
            (id)kSecAttrApplicationTag: tagData,
            (id)kSecAttrAccessControl: (__bridge id)ac,
        },
    };

    SecKeyRef priv = SecKeyCreateRandomKey((__bridge CFDictionaryRef)attrs, &cferr);
    CFRelease(ac);
    if (cferr != NULL || priv == NULL) {
        result.os_status = cferr ? (int)CFErrorGetCode(cferr) : -1;
        if (cferr) CFRelease(cferr);
        return result;
    }
    CFRelease(priv);
    result.os_status = 0;
    return result;
}

static SecKeyRef hsm_se_load_private(const char *tag) {
    NSData *tagData = [[NSString stringWithUTF8String:tag] dataUsingEncoding:NSUTF8StringEncoding];
    NSDictionary *query = @{
        (id)kSecClass: (id)kSecClassKey,
        (id)kSecAttrApplicationTag: tagData,
        (id)kSecAttrKeyType: (id)kSecAttrKeyTypeECSECPrimeRandom,
        (id)kSecReturnRef: @YES,
    };
    SecKeyRef key = NULL;
    OSStatus status = SecItemCopyMatching((__bridge CFDictionaryRef)query, (CFTypeRef *)&key);
    if (status != errSecSuccess) return NULL;
    return key;
}

static hsm_se_result_t hsm_se_public_key_bytes(const char *tag) {
    hsm_se_result_t result = {0};
    SecKeyRef priv = hsm_se_load_private(tag);
    if (priv == NULL) {
        result.os_status = errSecItemNotFound;
        return result;
    }
    SecKeyRef pub = SecKeyCopyPublicKey(priv);
    CFRelease(priv);
    if (pub == NULL) {
        result.os_status = -1;
        return result;
    }
    CFErrorRef cferr = NULL;
    CFDataRef data = SecKeyCopyExternalRepresentation(pub, &cferr);
    CFRelease(pub);
    if (cferr != NULL || data == NULL) {
        result.os_status = cferr ? (int)CFErrorGetCode(cferr) : -2;
        if (cferr) CFRelease(cferr);
        return result;
    }
    CFIndex len = CFDataGetLength(data);
    void *buf = malloc(len);
    memcpy(buf, CFDataGetBytePtr(data), len);
    CFRelease(data);
    result.pubkey_bytes = buf;
    result.pubkey_len = (size_t)len;
    result.os_status = 0;
    return result;
}

static SecKeyRef hsm_se_load_private_ctx(const char *tag, const char *reason) {
    NSData *tagData = [[NSString stringWithUTF8String:tag] dataUsingEncoding:NSUTF8StringEncoding];
    NSMutableDictionary *query = [@{
        (id)kSecClass: (id)kSecClassKey,
        (id)kSecAttrApplicationTag: tagData,
        (id)kSecAttrKeyType: (id)kSecAttrKeyTypeECSECPrimeRandom,
        (id)kSecReturnRef: @YES,
    } mutableCopy];

    if (reason != NULL) {
        LAContext *ctx = [[LAContext alloc] init];
        ctx.localizedReason = [NSString stringWithUTF8String:reason];
        query[(id)kSecUseAuthenticationContext] = ctx;
    }

    SecKeyRef key = NULL;
    OSStatus status = SecItemCopyMatching((__bridge CFDictionaryRef)query, (CFTypeRef *)&key);
    if (status != errSecSuccess) return NULL;
    return key;
}

static hsm_se_result_t hsm_se_decrypt(const char *tag, const void *ct, size_t ct_len, const char *reason) {
    hsm_se_result_t result = {0};
    SecKeyRef priv = reason != NULL ? hsm_se_load_private_ctx(tag, reason) : hsm_se_load_private(tag);
    if (priv == NULL) {
        result.os_status = errSecItemNotFound;
        return result;
    }

    CFDataRef ctData = CFDataCreate(kCFAllocatorDefault, ct, ct_len);
    CFErrorRef cferr = NULL;
    CFDataRef plain = SecKeyCreateDecryptedData(
        priv,
        kSecKeyAlgorithmECIESEncryptionCofactorVariableIVX963SHA256AESGCM,
        ctData,
        &cferr);
    CFRelease(ctData);
    CFRelease(priv);

    if (cferr != NULL || plain == NULL) {
        if (cferr) {
            result.os_status = hsm_se_cferror_code(cferr, &result.la_domain);
            CFRelease(cferr);
        } else {
            result.os_status = -3;
        }
        return result;
    }

    CFIndex len = CFDataGetLength(plain);
    void *buf = malloc(len);
    memcpy(buf, CFDataGetBytePtr(plain), len);
    CFRelease(plain);
    result.pubkey_bytes = buf;
    result.pubkey_len = (size_t)len;
    result.os_status = 0;
    return result;
}

static int hsm_se_delete_key(const char *tag) {
    NSData *tagData = [[NSString stringWithUTF8String:tag] dataUsingEncoding:NSUTF8StringEncoding];
    NSDictionary *query = @{
        (id)kSecClass: (id)kSecClassKey,
        (id)kSecAttrApplicationTag: tagData,
        (id)kSecAttrKeyType: (id)kSecAttrKeyTypeECSECPrimeRandom,
    };
    return (int)SecItemDelete((__bridge CFDictionaryRef)query);
}
*/
import "C"

import (
	"crypto/ecdh"
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/pkg/errors"
)

// darwinKeystore backs keys with the real Apple Secure Enclave via
// Security.framework, grounded on the key lifecycle in
// writerslogic-witnessd's secure_enclave_darwin.go (SecKeyCreateRandomKey
// with kSecAttrTokenIDSecureEnclave, SecItemCopyMatching, SecItemDelete)
// and on the ECIES decrypt operation documented in
// original_source/pinentry/hsm_secure_enclave.c/.h. requireBiometric mirrors
// the g_require_biometric flag in that reference: toggled at runtime via
// setUserPresence, it gates whether newly created keys demand Touch
// ID/Face ID (kSecAccessControlBiometryCurrentSet) on top of device unlock,
// and whether decrypt presents an operation-prompt reason through an
// LAContext.
type darwinKeystore struct {
	requireBiometric atomic.Bool
}

func newPlatformKeystore() keystore { return &darwinKeystore{} }

func (d *darwinKeystore) biometricAvailable() bool {
	return C.hsm_se_has_biometry() == 1
}

func (d *darwinKeystore) setUserPresence(required bool) error {
	d.requireBiometric.Store(required)
	return nil
}

func (d *darwinKeystore) createKey(identity string) error {
	if ok, _ := d.hasKey(identity); ok {
		return nil
	}
	tag := C.CString(keyTag(identity))
	defer C.free(unsafe.Pointer(tag))

	requireBiometric := C.int(0)
	if d.requireBiometric.Load() {
		requireBiometric = 1
	}

	res := C.hsm_se_create_key(tag, requireBiometric)
	if res.os_status != 0 {
		return fmt.Errorf("secureelement(darwin): SecKeyCreateRandomKey failed, OSStatus %d", int(res.os_status))
	}
	return nil
}

func (d *darwinKeystore) hasKey(identity string) (bool, error) {
	tag := C.CString(keyTag(identity))
	defer C.free(unsafe.Pointer(tag))

	res := C.hsm_se_public_key_bytes(tag)
	if res.pubkey_bytes != nil {
		C.free(res.pubkey_bytes)
		return true, nil
	}
	if res.os_status == C.errSecItemNotFound {
		return false, nil
	}
	return false, fmt.Errorf("secureelement(darwin): key lookup failed, OSStatus %d", int(res.os_status))
}

func (d *darwinKeystore) publicKey(identity string) (*ecdh.PublicKey, error) {
	if err := d.createKey(identity); err != nil {
		return nil, err
	}

	tag := C.CString(keyTag(identity))
	defer C.free(unsafe.Pointer(tag))

	res := C.hsm_se_public_key_bytes(tag)
	if res.pubkey_bytes == nil {
		return nil, fmt.Errorf("secureelement(darwin): export public key failed, OSStatus %d", int(res.os_status))
	}
	defer C.free(res.pubkey_bytes)

	raw := C.GoBytes(res.pubkey_bytes, C.int(res.pubkey_len))
	pub, err := ecdh.P256().NewPublicKey(raw)
	if err != nil {
		return nil, errors.Wrap(err, "secureelement(darwin): decode exported public key")
	}
	return pub, nil
}

// isLACancel reports whether code is an LAError meaning the presence
// check was dismissed rather than failed outright: -2 (LAErrorUserCancel)
// or -4 (LAErrorSystemCancel).
func isLACancel(code int) bool { return code == -2 || code == -4 }

func (d *darwinKeystore) decrypt(identity string, ciphertext []byte) ([]byte, error) {
	tag := C.CString(keyTag(identity))
	defer C.free(unsafe.Pointer(tag))

	var reason *C.char
	if d.requireBiometric.Load() {
		reason = C.CString(fmt.Sprintf("hsm-go needs to access the PIN for identity %q", identity))
		defer C.free(unsafe.Pointer(reason))
	}

	res := C.hsm_se_decrypt(tag, unsafe.Pointer(&ciphertext[0]), C.size_t(len(ciphertext)), reason)
	if res.pubkey_bytes == nil {
		if res.os_status == C.errSecItemNotFound {
			return nil, errKeyNotFound
		}
		if res.os_status == C.errSecUserCanceled || (res.la_domain == 1 && isLACancel(int(res.os_status))) {
			return nil, errCancelled
		}
		return nil, fmt.Errorf("secureelement(darwin): SecKeyCreateDecryptedData failed, OSStatus %d", int(res.os_status))
	}
	defer C.free(res.pubkey_bytes)
	return C.GoBytes(res.pubkey_bytes, C.int(res.pubkey_len)), nil
}

func (d *darwinKeystore) deleteKey(identity string) error {
	tag := C.CString(keyTag(identity))
	defer C.free(unsafe.Pointer(tag))

	status := C.hsm_se_delete_key(tag)
	if status != 0 && status != C.errSecItemNotFound {
		return fmt.Errorf("secureelement(darwin): SecItemDelete failed, OSStatus %d", int(status))
	}
	return nil
}
