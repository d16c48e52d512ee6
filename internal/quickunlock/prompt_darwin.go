//go:build darwin

package quickunlock

/*
#cgo CFLAGS: -x objective-c -fobjc-arc
#cgo LDFLAGS: -framework LocalAuthentication -framework Foundation -framework Security -framework CoreFoundation

#import <LocalAuthentication/LocalAuthentication.h>
#import <Foundation/Foundation.h>
#import <dispatch/dispatch.h>
#include <stdlib.h>

static int rbw_bio_prompt(const char *cReason) {
	@autoreleasepool {
		NSString *reason = cReason ? [[NSString alloc] initWithUTF8String:cReason] : @"Authenticate to continue";
		if (!reason) {
			reason = @"Authenticate to continue";
		}

		LAContext *context = [[LAContext alloc] init];
		if (!context) {
			return -100;
		}

		NSError *canError = nil;
		if (![context canEvaluatePolicy:LAPolicyDeviceOwnerAuthenticationWithBiometrics error:&canError]) {
			return canError ? (int)[canError code] : -101;
		}

		dispatch_semaphore_t sema = dispatch_semaphore_create(0);

		__block BOOL success = NO;
		__block NSError *evalError = nil;

		[context evaluatePolicy:LAPolicyDeviceOwnerAuthenticationWithBiometrics
		        localizedReason:reason
		                  reply:^(BOOL evaluated, NSError * _Nullable error) {
		                      success = evaluated;
		                      evalError = error;
		                      dispatch_semaphore_signal(sema);
		                  }];

		dispatch_time_t timeout = dispatch_time(DISPATCH_TIME_NOW, (int64_t)(60 * NSEC_PER_SEC));
		long waitResult = dispatch_semaphore_wait(sema, timeout);
		[context invalidate];

		if (waitResult != 0) {
			return -103;
		}
		if (success) {
			return 0;
		}
		return evalError ? (int)[evalError code] : -104;
	}
}
*/
import "C"
import (
	"fmt"
	"strings"
	"unsafe"
)

const defaultReason = "Authenticate with Touch ID to unlock rbw"

// authenticate prompts for Touch ID before Load releases a cached key,
// adapted from the teacher's biometric-toggle prompt (internal/bio/
// toggle/prompt_darwin.go) onto the quick-unlock cache instead of a
// toggle flag: the key only leaves the keychain after the OS itself
// vouches for the user, not merely because an entry exists.
func authenticate(reason string) error {
	if strings.TrimSpace(reason) == "" {
		reason = defaultReason
	}
	cReason := C.CString(reason)
	defer C.free(unsafe.Pointer(cReason))

	code := int(C.rbw_bio_prompt(cReason))
	if code == 0 {
		return nil
	}
	return fmt.Errorf("biometric authentication failed (code %d)", code)
}
